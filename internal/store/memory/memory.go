// Package memory provides an in-memory implementation of the store interfaces.
// A single mutex serializes all mutations, which gives the same observable
// reservation guarantees as the row-locked PostgreSQL implementation. It
// backs unit tests and local development without a database.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/jeevandhara/bloodbank/internal/models"
	"github.com/jeevandhara/bloodbank/internal/store"
)

// MemoryStore implements store.Store with in-memory maps.
type MemoryStore struct {
	mu sync.RWMutex

	donors        map[string]*models.Donor
	appointments  map[string]*models.Appointment
	bloodUnits    map[string]*models.BloodUnit
	bloodRequests map[string]*models.BloodRequest

	donorStore       *DonorStore
	appointmentStore *AppointmentStore
	unitStore        *BloodUnitStore
	requestStore     *BloodRequestStore
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	s := &MemoryStore{
		donors:        make(map[string]*models.Donor),
		appointments:  make(map[string]*models.Appointment),
		bloodUnits:    make(map[string]*models.BloodUnit),
		bloodRequests: make(map[string]*models.BloodRequest),
	}
	s.donorStore = &DonorStore{s: s}
	s.appointmentStore = &AppointmentStore{s: s}
	s.unitStore = &BloodUnitStore{s: s}
	s.requestStore = &BloodRequestStore{s: s}
	return s
}

// Donors returns the DonorStore.
func (s *MemoryStore) Donors() store.DonorStore { return s.donorStore }

// Appointments returns the AppointmentStore.
func (s *MemoryStore) Appointments() store.AppointmentStore { return s.appointmentStore }

// BloodUnits returns the BloodUnitStore.
func (s *MemoryStore) BloodUnits() store.BloodUnitStore { return s.unitStore }

// BloodRequests returns the BloodRequestStore.
func (s *MemoryStore) BloodRequests() store.BloodRequestStore { return s.requestStore }

// WithTx executes fn against the same store. The memory store has no real
// transactions; the per-operation mutex is its serialization point.
func (s *MemoryStore) WithTx(ctx context.Context, fn func(store.Store) error) error {
	return fn(s)
}

// Ping always succeeds.
func (s *MemoryStore) Ping(ctx context.Context) error { return nil }

// Close is a no-op.
func (s *MemoryStore) Close() error { return nil }

// DonorStore implements store.DonorStore in memory.
type DonorStore struct {
	s *MemoryStore
}

func (d *DonorStore) Create(_ context.Context, donor *models.Donor) error {
	d.s.mu.Lock()
	defer d.s.mu.Unlock()
	for _, existing := range d.s.donors {
		if existing.Email == donor.Email {
			return models.ErrConflict
		}
	}
	now := time.Now().UTC()
	if donor.CreatedAt.IsZero() {
		donor.CreatedAt = now
	}
	donor.UpdatedAt = now
	cp := *donor
	d.s.donors[donor.ID] = &cp
	return nil
}

func (d *DonorStore) GetByID(_ context.Context, id string) (*models.Donor, error) {
	d.s.mu.RLock()
	defer d.s.mu.RUnlock()
	if donor, ok := d.s.donors[id]; ok {
		cp := *donor
		return &cp, nil
	}
	return nil, models.ErrNotFound
}

func (d *DonorStore) GetByEmail(_ context.Context, email string) (*models.Donor, error) {
	d.s.mu.RLock()
	defer d.s.mu.RUnlock()
	email = models.NormalizeEmail(email)
	for _, donor := range d.s.donors {
		if donor.Email == email {
			cp := *donor
			return &cp, nil
		}
	}
	return nil, models.ErrNotFound
}

func (d *DonorStore) Update(_ context.Context, donor *models.Donor) error {
	d.s.mu.Lock()
	defer d.s.mu.Unlock()
	existing, ok := d.s.donors[donor.ID]
	if !ok {
		return models.ErrNotFound
	}
	existing.Name = donor.Name
	existing.BloodType = donor.BloodType
	existing.Phone = donor.Phone
	existing.Address = donor.Address
	existing.Eligible = donor.Eligible
	existing.UpdatedAt = time.Now().UTC()
	return nil
}

func (d *DonorStore) RecordDonation(_ context.Context, donorID string, at time.Time) error {
	d.s.mu.Lock()
	defer d.s.mu.Unlock()
	donor, ok := d.s.donors[donorID]
	if !ok {
		return models.ErrNotFound
	}
	donor.TotalDonations++
	t := at.UTC()
	donor.LastDonation = &t
	donor.UpdatedAt = time.Now().UTC()
	return nil
}

func (d *DonorStore) ListByBloodType(_ context.Context, bloodType models.BloodType) ([]*models.Donor, error) {
	d.s.mu.RLock()
	defer d.s.mu.RUnlock()
	var donors []*models.Donor
	for _, donor := range d.s.donors {
		if donor.BloodType == bloodType {
			cp := *donor
			donors = append(donors, &cp)
		}
	}
	sort.Slice(donors, func(i, j int) bool { return donors[i].CreatedAt.Before(donors[j].CreatedAt) })
	return donors, nil
}

// AppointmentStore implements store.AppointmentStore in memory.
type AppointmentStore struct {
	s *MemoryStore
}

func (a *AppointmentStore) Create(_ context.Context, appt *models.Appointment) error {
	a.s.mu.Lock()
	defer a.s.mu.Unlock()
	if appt.CreatedAt.IsZero() {
		appt.CreatedAt = time.Now().UTC()
	}
	cp := *appt
	a.s.appointments[appt.ID] = &cp
	return nil
}

func (a *AppointmentStore) Get(_ context.Context, id string) (*models.Appointment, error) {
	a.s.mu.RLock()
	defer a.s.mu.RUnlock()
	if appt, ok := a.s.appointments[id]; ok {
		cp := *appt
		return &cp, nil
	}
	return nil, models.ErrNotFound
}

func (a *AppointmentStore) ListByDonor(_ context.Context, donorID string) ([]*models.Appointment, error) {
	a.s.mu.RLock()
	defer a.s.mu.RUnlock()
	var appts []*models.Appointment
	for _, appt := range a.s.appointments {
		if appt.DonorID == donorID {
			cp := *appt
			appts = append(appts, &cp)
		}
	}
	sort.Slice(appts, func(i, j int) bool { return appts[i].Date.After(appts[j].Date) })
	return appts, nil
}

func (a *AppointmentStore) ListUpcoming(_ context.Context, from, to time.Time) ([]*models.Appointment, error) {
	a.s.mu.RLock()
	defer a.s.mu.RUnlock()
	var appts []*models.Appointment
	for _, appt := range a.s.appointments {
		if appt.Status.IsTerminal() {
			continue
		}
		if !appt.Date.Before(from) && appt.Date.Before(to) {
			cp := *appt
			appts = append(appts, &cp)
		}
	}
	sort.Slice(appts, func(i, j int) bool { return appts[i].Date.Before(appts[j].Date) })
	return appts, nil
}

func (a *AppointmentStore) SetStatus(_ context.Context, id string, status models.AppointmentStatus) error {
	a.s.mu.Lock()
	defer a.s.mu.Unlock()
	appt, ok := a.s.appointments[id]
	if !ok {
		return models.ErrNotFound
	}
	appt.Status = status
	return nil
}

// BloodUnitStore implements store.BloodUnitStore in memory.
type BloodUnitStore struct {
	s *MemoryStore
}

func (b *BloodUnitStore) Create(_ context.Context, unit *models.BloodUnit) error {
	b.s.mu.Lock()
	defer b.s.mu.Unlock()
	for _, existing := range b.s.bloodUnits {
		if existing.BagID == unit.BagID {
			return models.ErrConflict
		}
	}
	now := time.Now().UTC()
	if unit.CreatedAt.IsZero() {
		unit.CreatedAt = now
	}
	unit.UpdatedAt = now
	cp := *unit
	b.s.bloodUnits[unit.ID] = &cp
	return nil
}

func (b *BloodUnitStore) Get(_ context.Context, id string) (*models.BloodUnit, error) {
	b.s.mu.RLock()
	defer b.s.mu.RUnlock()
	if unit, ok := b.s.bloodUnits[id]; ok {
		cp := *unit
		return &cp, nil
	}
	return nil, models.ErrNotFound
}

func (b *BloodUnitStore) GetMany(_ context.Context, ids []string) ([]*models.BloodUnit, error) {
	b.s.mu.RLock()
	defer b.s.mu.RUnlock()
	var units []*models.BloodUnit
	for _, id := range ids {
		if unit, ok := b.s.bloodUnits[id]; ok {
			cp := *unit
			units = append(units, &cp)
		}
	}
	sort.Slice(units, func(i, j int) bool { return units[i].CollectionDate.Before(units[j].CollectionDate) })
	return units, nil
}

func (b *BloodUnitStore) List(_ context.Context, filter store.UnitFilter) ([]*models.BloodUnit, error) {
	b.s.mu.RLock()
	defer b.s.mu.RUnlock()
	var units []*models.BloodUnit
	for _, unit := range b.s.bloodUnits {
		if !matchesUnit(unit, filter) {
			continue
		}
		cp := *unit
		units = append(units, &cp)
	}
	sort.Slice(units, func(i, j int) bool { return units[i].CollectionDate.Before(units[j].CollectionDate) })
	return units, nil
}

func (b *BloodUnitStore) CountByType(_ context.Context, filter store.UnitFilter) (map[models.BloodType]int, error) {
	b.s.mu.RLock()
	defer b.s.mu.RUnlock()
	counts := make(map[models.BloodType]int)
	for _, unit := range b.s.bloodUnits {
		if unit.Status != models.UnitAvailable {
			continue
		}
		if filter.BloodType != "" && unit.BloodType != filter.BloodType {
			continue
		}
		if filter.Location != "" && !strings.EqualFold(unit.Location, filter.Location) {
			continue
		}
		counts[unit.BloodType]++
	}
	return counts, nil
}

func (b *BloodUnitStore) ReserveOldestAvailable(_ context.Context, bloodType models.BloodType, count int) ([]string, error) {
	if count <= 0 {
		return nil, &models.ValidationError{Field: "count", Message: "count must be greater than zero"}
	}

	// Selection and transition happen under one lock, so concurrent callers
	// observe all-or-nothing reservations.
	b.s.mu.Lock()
	defer b.s.mu.Unlock()

	var available []*models.BloodUnit
	for _, unit := range b.s.bloodUnits {
		if unit.Status == models.UnitAvailable && unit.BloodType == bloodType {
			available = append(available, unit)
		}
	}
	if len(available) < count {
		return nil, models.ErrInsufficientStock
	}

	// FIFO: oldest collection first, to minimize wastage from expiry.
	sort.Slice(available, func(i, j int) bool {
		return available[i].CollectionDate.Before(available[j].CollectionDate)
	})

	ids := make([]string, 0, count)
	now := time.Now().UTC()
	for _, unit := range available[:count] {
		unit.Status = models.UnitReserved
		unit.UpdatedAt = now
		ids = append(ids, unit.ID)
	}
	return ids, nil
}

func (b *BloodUnitStore) SetStatus(_ context.Context, ids []string, status models.UnitStatus) error {
	b.s.mu.Lock()
	defer b.s.mu.Unlock()
	now := time.Now().UTC()
	for _, id := range ids {
		if unit, ok := b.s.bloodUnits[id]; ok {
			unit.Status = status
			unit.UpdatedAt = now
		}
	}
	return nil
}

func (b *BloodUnitStore) ExpireBefore(_ context.Context, cutoff time.Time) (int, error) {
	b.s.mu.Lock()
	defer b.s.mu.Unlock()
	changed := 0
	now := time.Now().UTC()
	for _, unit := range b.s.bloodUnits {
		if unit.Status == models.UnitAvailable && unit.ExpiryDate.Before(cutoff) {
			unit.Status = models.UnitExpired
			unit.UpdatedAt = now
			changed++
		}
	}
	return changed, nil
}

func (b *BloodUnitStore) Update(_ context.Context, unit *models.BloodUnit) error {
	b.s.mu.Lock()
	defer b.s.mu.Unlock()
	existing, ok := b.s.bloodUnits[unit.ID]
	if !ok {
		return models.ErrNotFound
	}
	existing.BloodType = unit.BloodType
	existing.CollectionDate = unit.CollectionDate
	existing.ExpiryDate = unit.ExpiryDate
	existing.Location = unit.Location
	existing.UpdatedAt = time.Now().UTC()
	return nil
}

func (b *BloodUnitStore) Delete(_ context.Context, id string) error {
	b.s.mu.Lock()
	defer b.s.mu.Unlock()
	if _, ok := b.s.bloodUnits[id]; !ok {
		return models.ErrNotFound
	}
	delete(b.s.bloodUnits, id)
	return nil
}

func matchesUnit(unit *models.BloodUnit, filter store.UnitFilter) bool {
	if filter.BloodType != "" && unit.BloodType != filter.BloodType {
		return false
	}
	if filter.Location != "" && !strings.EqualFold(unit.Location, filter.Location) {
		return false
	}
	if filter.Status != "" && unit.Status != filter.Status {
		return false
	}
	return true
}

// BloodRequestStore implements store.BloodRequestStore in memory.
type BloodRequestStore struct {
	s *MemoryStore
}

func (r *BloodRequestStore) Create(_ context.Context, req *models.BloodRequest) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	now := time.Now().UTC()
	if req.RequestedAt.IsZero() {
		req.RequestedAt = now
	}
	req.UpdatedAt = now
	cp := *req
	r.s.bloodRequests[req.ID] = &cp
	return nil
}

func (r *BloodRequestStore) Get(_ context.Context, id string) (*models.BloodRequest, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	if req, ok := r.s.bloodRequests[id]; ok {
		cp := *req
		return &cp, nil
	}
	return nil, models.ErrNotFound
}

func (r *BloodRequestStore) List(_ context.Context, filter store.RequestFilter) ([]*models.BloodRequest, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	var reqs []*models.BloodRequest
	for _, req := range r.s.bloodRequests {
		if filter.Status != "" && req.Status != filter.Status {
			continue
		}
		if filter.HospitalName != "" && req.HospitalName != filter.HospitalName {
			continue
		}
		cp := *req
		reqs = append(reqs, &cp)
	}
	sort.Slice(reqs, func(i, j int) bool { return reqs[i].RequestedAt.After(reqs[j].RequestedAt) })
	return reqs, nil
}

func (r *BloodRequestStore) TransitionStatus(_ context.Context, id string, from, to models.RequestStatus) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	req, ok := r.s.bloodRequests[id]
	if !ok {
		return models.ErrNotFound
	}
	if req.Status != from {
		return models.ErrInvalidTransition
	}
	req.Status = to
	req.UpdatedAt = time.Now().UTC()
	return nil
}
