package service

import (
	"context"
	"errors"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/Freeeeeet/office_hours/internal/model"
	"github.com/Freeeeeet/office_hours/internal/timeslot"
)

// ── in-memory store ──
//
// memStore keeps every table in maps. WithinTx serialises transactions on a
// mutex, runs fn against a copy and swaps the copy in only when fn succeeds,
// which gives the services real commit and rollback semantics.

type memData struct {
	users    map[int64]model.User
	students map[int64]model.Student
	faculty  map[int64]model.Faculty
	depts    []model.Department
	slots    map[int64]model.AvailabilitySlot
	appts    map[int64]model.Appointment
	nextID   int64
}

func (d *memData) clone() *memData {
	c := &memData{
		users:    make(map[int64]model.User, len(d.users)),
		students: make(map[int64]model.Student, len(d.students)),
		faculty:  make(map[int64]model.Faculty, len(d.faculty)),
		depts:    append([]model.Department(nil), d.depts...),
		slots:    make(map[int64]model.AvailabilitySlot, len(d.slots)),
		appts:    make(map[int64]model.Appointment, len(d.appts)),
		nextID:   d.nextID,
	}
	for k, v := range d.users {
		c.users[k] = v
	}
	for k, v := range d.students {
		c.students[k] = v
	}
	for k, v := range d.faculty {
		c.faculty[k] = v
	}
	for k, v := range d.slots {
		c.slots[k] = v
	}
	for k, v := range d.appts {
		c.appts[k] = v
	}
	return c
}

func (d *memData) id() int64 {
	d.nextID++
	return d.nextID
}

type memStore struct {
	mu   sync.Mutex
	data *memData
	// fail makes the named repository method return the error, e.g. "Appointments.Create".
	fail map[string]error
	// beforeReserve runs just ahead of the Reserve compare-and-set, with the
	// data the statement sees. Tests use it to land a competing booking there.
	beforeReserve func(d *memData, slotID int64)
}

func newMemStore() *memStore {
	return &memStore{
		data: &memData{
			users:    map[int64]model.User{},
			students: map[int64]model.Student{},
			faculty:  map[int64]model.Faculty{},
			slots:    map[int64]model.AvailabilitySlot{},
			appts:    map[int64]model.Appointment{},
			nextID:   1000,
		},
		fail: map[string]error{},
	}
}

func (s *memStore) WithinTx(ctx context.Context, fn func(Repositories) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	work := s.data.clone()
	if err := fn(s.bind(&view{store: s, data: work})); err != nil {
		return err
	}
	s.data = work
	return nil
}

// Repos returns repositories working outside any transaction.
func (s *memStore) Repos() Repositories {
	return s.bind(&view{store: s})
}

func (s *memStore) bind(v *view) Repositories {
	return Repositories{
		Directory:    &memDirectory{v},
		Availability: &memSlots{v},
		Appointments: &memAppts{v},
	}
}

// snapshot reads committed state.
func (s *memStore) snapshot() *memData {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.data.clone()
}

// commitBooking marks the slot booked in both committed state and d, as if
// another transaction booked it and committed. Call only with s.mu held.
func (s *memStore) commitBooking(d *memData, slotID int64) {
	for _, data := range []*memData{s.data, d} {
		slot := data.slots[slotID]
		slot.IsBooked = true
		data.slots[slotID] = slot
	}
}

func (s *memStore) slot(id int64) model.AvailabilitySlot {
	return s.snapshot().slots[id]
}

func (s *memStore) appointment(id int64) model.Appointment {
	return s.snapshot().appts[id]
}

// view is a transaction-bound (data set) or autocommit (data nil) handle.
type view struct {
	store *memStore
	data  *memData
}

func (v *view) do(method string, fn func(d *memData) error) error {
	if v.data != nil {
		if err := v.store.fail[method]; err != nil {
			return err
		}
		return fn(v.data)
	}
	v.store.mu.Lock()
	defer v.store.mu.Unlock()
	if err := v.store.fail[method]; err != nil {
		return err
	}
	return fn(v.store.data)
}

// ── directory ──

type memDirectory struct{ *view }

func (r *memDirectory) student(method string, match func(model.Student) bool) (*model.Student, error) {
	var out *model.Student
	err := r.do(method, func(d *memData) error {
		for _, st := range d.students {
			if match(st) {
				st := st
				out = &st
				return nil
			}
		}
		return nil
	})
	return out, err
}

func (r *memDirectory) faculty(method string, match func(model.Faculty) bool) (*model.Faculty, error) {
	var out *model.Faculty
	err := r.do(method, func(d *memData) error {
		for _, f := range d.faculty {
			if match(f) {
				f := f
				out = &f
				return nil
			}
		}
		return nil
	})
	return out, err
}

func (r *memDirectory) GetStudent(ctx context.Context, id int64) (*model.Student, error) {
	return r.student("Directory.GetStudent", func(s model.Student) bool { return s.ID == id })
}

func (r *memDirectory) LockStudent(ctx context.Context, id int64) (*model.Student, error) {
	return r.student("Directory.LockStudent", func(s model.Student) bool { return s.ID == id })
}

func (r *memDirectory) GetStudentByUserID(ctx context.Context, userID int64) (*model.Student, error) {
	return r.student("Directory.GetStudentByUserID", func(s model.Student) bool { return s.UserID == userID })
}

func (r *memDirectory) GetFaculty(ctx context.Context, id int64) (*model.Faculty, error) {
	return r.faculty("Directory.GetFaculty", func(f model.Faculty) bool { return f.ID == id })
}

func (r *memDirectory) LockFaculty(ctx context.Context, id int64) (*model.Faculty, error) {
	return r.faculty("Directory.LockFaculty", func(f model.Faculty) bool { return f.ID == id })
}

func (r *memDirectory) GetFacultyByUserID(ctx context.Context, userID int64) (*model.Faculty, error) {
	return r.faculty("Directory.GetFacultyByUserID", func(f model.Faculty) bool { return f.UserID == userID })
}

func (r *memDirectory) ListFaculty(ctx context.Context, departmentID *int64) ([]*model.Faculty, error) {
	var out []*model.Faculty
	err := r.do("Directory.ListFaculty", func(d *memData) error {
		for _, f := range d.faculty {
			if departmentID == nil || f.DepartmentID == *departmentID {
				f := f
				out = append(out, &f)
			}
		}
		return nil
	})
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, err
}

func (r *memDirectory) ListDepartments(ctx context.Context) ([]*model.Department, error) {
	var out []*model.Department
	err := r.do("Directory.ListDepartments", func(d *memData) error {
		for _, dep := range d.depts {
			dep := dep
			out = append(out, &dep)
		}
		return nil
	})
	return out, err
}

func (r *memDirectory) GetUserByTelegramChatID(ctx context.Context, chatID int64) (*model.User, error) {
	var out *model.User
	err := r.do("Directory.GetUserByTelegramChatID", func(d *memData) error {
		for _, u := range d.users {
			if u.TelegramChatID != nil && *u.TelegramChatID == chatID {
				u := u
				out = &u
			}
		}
		return nil
	})
	return out, err
}

func (r *memDirectory) SetTelegramChatID(ctx context.Context, userID, chatID int64) (bool, error) {
	var ok bool
	err := r.do("Directory.SetTelegramChatID", func(d *memData) error {
		u, found := d.users[userID]
		if !found {
			return nil
		}
		u.TelegramChatID = &chatID
		d.users[userID] = u
		ok = true
		return nil
	})
	return ok, err
}

// ── availability ──

type memSlots struct{ *view }

func (r *memSlots) Create(ctx context.Context, slot *model.AvailabilitySlot) error {
	return r.do("Availability.Create", func(d *memData) error {
		slot.ID = d.id()
		slot.CreatedAt = time.Now()
		slot.UpdatedAt = slot.CreatedAt
		d.slots[slot.ID] = *slot
		return nil
	})
}

func (r *memSlots) get(method string, id int64) (*model.AvailabilitySlot, error) {
	var out *model.AvailabilitySlot
	err := r.do(method, func(d *memData) error {
		if s, ok := d.slots[id]; ok {
			out = &s
		}
		return nil
	})
	return out, err
}

func (r *memSlots) GetByID(ctx context.Context, id int64) (*model.AvailabilitySlot, error) {
	return r.get("Availability.GetByID", id)
}

func (r *memSlots) GetForUpdate(ctx context.Context, id int64) (*model.AvailabilitySlot, error) {
	return r.get("Availability.GetForUpdate", id)
}

func (r *memSlots) list(method string, match func(model.AvailabilitySlot) bool) ([]*model.AvailabilitySlot, error) {
	var out []*model.AvailabilitySlot
	err := r.do(method, func(d *memData) error {
		for _, s := range d.slots {
			if match(s) {
				s := s
				out = append(out, &s)
			}
		}
		return nil
	})
	sort.Slice(out, func(i, j int) bool {
		if !out[i].Date.Equal(out[j].Date) {
			return out[i].Date.Before(out[j].Date)
		}
		return out[i].StartTime < out[j].StartTime
	})
	return out, err
}

func (r *memSlots) ListActiveByFacultyDate(ctx context.Context, facultyID int64, date time.Time) ([]*model.AvailabilitySlot, error) {
	return r.list("Availability.ListActiveByFacultyDate", func(s model.AvailabilitySlot) bool {
		return s.FacultyID == facultyID && s.Date.Equal(date) && s.IsActive
	})
}

func (r *memSlots) ListByFaculty(ctx context.Context, facultyID int64, openOnly bool) ([]*model.AvailabilitySlot, error) {
	return r.list("Availability.ListByFaculty", func(s model.AvailabilitySlot) bool {
		return s.FacultyID == facultyID && (!openOnly || s.IsOpen())
	})
}

func (r *memSlots) Update(ctx context.Context, slot *model.AvailabilitySlot) error {
	return r.do("Availability.Update", func(d *memData) error {
		slot.UpdatedAt = time.Now()
		d.slots[slot.ID] = *slot
		return nil
	})
}

func (r *memSlots) Delete(ctx context.Context, id int64) error {
	return r.do("Availability.Delete", func(d *memData) error {
		delete(d.slots, id)
		for apptID, a := range d.appts {
			if a.AvailabilityID != nil && *a.AvailabilityID == id {
				a.AvailabilityID = nil
				d.appts[apptID] = a
			}
		}
		return nil
	})
}

func (r *memSlots) Reserve(ctx context.Context, id int64) (bool, error) {
	var ok bool
	err := r.do("Availability.Reserve", func(d *memData) error {
		if hook := r.store.beforeReserve; hook != nil {
			hook(d, id)
		}
		s, found := d.slots[id]
		if !found || !s.IsActive || s.IsBooked {
			return nil
		}
		s.IsBooked = true
		d.slots[id] = s
		ok = true
		return nil
	})
	return ok, err
}

func (r *memSlots) Release(ctx context.Context, id int64) error {
	return r.do("Availability.Release", func(d *memData) error {
		if s, found := d.slots[id]; found {
			s.IsBooked = false
			d.slots[id] = s
		}
		return nil
	})
}

// ── appointments ──

type memAppts struct{ *view }

func (r *memAppts) Create(ctx context.Context, a *model.Appointment) error {
	return r.do("Appointments.Create", func(d *memData) error {
		a.ID = d.id()
		a.CreatedAt = time.Now()
		a.UpdatedAt = a.CreatedAt
		d.appts[a.ID] = *a
		return nil
	})
}

func (r *memAppts) get(method string, id int64) (*model.Appointment, error) {
	var out *model.Appointment
	err := r.do(method, func(d *memData) error {
		if a, ok := d.appts[id]; ok {
			out = &a
		}
		return nil
	})
	return out, err
}

func (r *memAppts) GetByID(ctx context.Context, id int64) (*model.Appointment, error) {
	return r.get("Appointments.GetByID", id)
}

func (r *memAppts) GetForUpdate(ctx context.Context, id int64) (*model.Appointment, error) {
	return r.get("Appointments.GetForUpdate", id)
}

func (r *memAppts) list(method string, match func(model.Appointment) bool) ([]*model.Appointment, error) {
	var out []*model.Appointment
	err := r.do(method, func(d *memData) error {
		for _, a := range d.appts {
			if match(a) {
				a := a
				out = append(out, &a)
			}
		}
		return nil
	})
	sort.Slice(out, func(i, j int) bool {
		if !out[i].Date.Equal(out[j].Date) {
			return out[i].Date.Before(out[j].Date)
		}
		return out[i].StartTime < out[j].StartTime
	})
	return out, err
}

func (r *memAppts) ListActiveByStudentDate(ctx context.Context, studentID int64, date time.Time) ([]*model.Appointment, error) {
	return r.list("Appointments.ListActiveByStudentDate", func(a model.Appointment) bool {
		return a.StudentID == studentID && a.Date.Equal(date) && a.Status.IsActive()
	})
}

func (r *memAppts) ListByStudent(ctx context.Context, studentID int64, status *model.AppointmentStatus) ([]*model.Appointment, error) {
	return r.list("Appointments.ListByStudent", func(a model.Appointment) bool {
		return a.StudentID == studentID && (status == nil || a.Status == *status)
	})
}

func (r *memAppts) ListByFaculty(ctx context.Context, facultyID int64, status *model.AppointmentStatus) ([]*model.Appointment, error) {
	return r.list("Appointments.ListByFaculty", func(a model.Appointment) bool {
		return a.FacultyID == facultyID && (status == nil || a.Status == *status)
	})
}

func (r *memAppts) UpdateStatus(ctx context.Context, a *model.Appointment) error {
	return r.do("Appointments.UpdateStatus", func(d *memData) error {
		if _, ok := d.appts[a.ID]; !ok {
			return errors.New("update appointment status: no rows")
		}
		a.UpdatedAt = time.Now()
		d.appts[a.ID] = *a
		return nil
	})
}

// ── event sink ──

type recordingSink struct {
	mu     sync.Mutex
	events []model.AppointmentEvent
	err    error
}

func (s *recordingSink) Emit(ctx context.Context, event model.AppointmentEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, event)
	return s.err
}

func (s *recordingSink) types() []model.EventType {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]model.EventType, 0, len(s.events))
	for _, e := range s.events {
		out = append(out, e.Type)
	}
	return out
}

// ── fixtures ──

const (
	facultyA  int64 = 10
	facultyB  int64 = 20
	studentS1 int64 = 100
	studentS2 int64 = 101
)

// Monday 2025-06-09 09:30 UTC.
var fixedNow = time.Date(2025, 6, 9, 9, 30, 0, 0, time.UTC)

type testEnv struct {
	store        *memStore
	sink         *recordingSink
	availability *AvailabilityService
	appointments *AppointmentService
	lifecycle    *LifecycleService
	directory    *DirectoryService
}

func setupTestEnv(t *testing.T) *testEnv {
	t.Helper()

	store := newMemStore()
	d := store.data
	d.depts = []model.Department{{ID: 1, Name: "Computer Science", Code: "CSE"}}

	chat := int64(555)
	d.users[1] = model.User{ID: 1, Email: "a@uni.edu", Role: model.RoleFaculty, IsVerified: true}
	d.users[2] = model.User{ID: 2, Email: "b@uni.edu", Role: model.RoleFaculty, IsVerified: true}
	d.users[3] = model.User{ID: 3, Email: "s1@uni.edu", Role: model.RoleStudent, IsVerified: true, TelegramChatID: &chat}
	d.users[4] = model.User{ID: 4, Email: "s2@uni.edu", Role: model.RoleStudent, IsVerified: true}

	d.faculty[facultyA] = model.Faculty{ID: facultyA, UserID: 1, FacultyCode: "F-A", Name: "Dr. Ada", DepartmentID: 1, Email: "a@uni.edu"}
	d.faculty[facultyB] = model.Faculty{ID: facultyB, UserID: 2, FacultyCode: "F-B", Name: "Dr. Bell", DepartmentID: 1, Email: "b@uni.edu"}
	d.students[studentS1] = model.Student{ID: studentS1, UserID: 3, Name: "Sam", RegistrationNumber: "R1", CurrentYear: 2, CurrentSemester: 3, Email: "s1@uni.edu", TelegramChatID: &chat}
	d.students[studentS2] = model.Student{ID: studentS2, UserID: 4, Name: "Kim", RegistrationNumber: "R2", CurrentYear: 1, CurrentSemester: 1, Email: "s2@uni.edu"}

	sink := &recordingSink{}
	clock := Clock{Location: time.UTC, Now: func() time.Time { return fixedNow }}
	logger := zap.NewNop()
	repos := store.Repos()

	return &testEnv{
		store:        store,
		sink:         sink,
		availability: NewAvailabilityService(repos, store, clock, logger),
		appointments: NewAppointmentService(repos, store, sink, clock, logger),
		lifecycle:    NewLifecycleService(store, sink, clock, logger),
		directory:    NewDirectoryService(repos.Directory, logger),
	}
}

func day(t *testing.T, s string) time.Time {
	t.Helper()
	d, err := timeslot.ParseDate(s)
	require.NoError(t, err)
	return d
}

func tod(s string) timeslot.TimeOfDay { return timeslot.MustParse(s) }

func ptr[T any](v T) *T { return &v }

// declare creates a slot for the faculty member and fails the test on error.
func (e *testEnv) declare(t *testing.T, facultyID int64, date, start, end string) *model.AvailabilitySlot {
	t.Helper()
	slot, err := e.availability.DeclareSlot(context.Background(), facultyID, day(t, date), tod(start), tod(end))
	require.NoError(t, err)
	return slot
}

func slotRequest(slotID int64) BookingRequest {
	return BookingRequest{
		AvailabilityID:  &slotID,
		Purpose:         "Discuss project",
		PurposeCategory: model.PurposeProject,
	}
}

func directRequest(t *testing.T, date, start string, minutes int) BookingRequest {
	return BookingRequest{
		Direct:          true,
		Date:            day(t, date),
		StartTime:       ptr(tod(start)),
		Duration:        ptr(minutes),
		Purpose:         "Doubt clearing",
		PurposeCategory: model.PurposeAcademic,
	}
}
