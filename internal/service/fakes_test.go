package service

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"sort"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/stemsi/elearning-backend/internal/gateway"
	"github.com/stemsi/elearning-backend/internal/model"
	"github.com/stemsi/elearning-backend/internal/repository"
)

// In-memory stores. Each embeds its interface so methods a test does not
// need stay unimplemented.

type fakeUsers struct {
	UserStore
	mu     sync.Mutex
	nextID int64
	byID   map[int64]*model.UserAccount
}

func newFakeUsers(users ...*model.UserAccount) *fakeUsers {
	f := &fakeUsers{byID: map[int64]*model.UserAccount{}}
	for _, u := range users {
		f.byID[u.ID] = u
		if u.ID > f.nextID {
			f.nextID = u.ID
		}
	}
	return f
}

func (f *fakeUsers) Create(_ context.Context, u *model.UserAccount) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, existing := range f.byID {
		if existing.Email == u.Email {
			return repository.ErrEmailTaken
		}
	}
	f.nextID++
	u.ID = f.nextID
	cp := *u
	f.byID[u.ID] = &cp
	return nil
}

func (f *fakeUsers) GetByID(_ context.Context, id int64) (*model.UserAccount, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.byID[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	cp := *u
	return &cp, nil
}

func (f *fakeUsers) GetByEmail(_ context.Context, email string) (*model.UserAccount, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.byID {
		if u.Email == email {
			cp := *u
			return &cp, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (f *fakeUsers) UpdatePassword(_ context.Context, id int64, hash string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.byID[id]
	if !ok {
		return pgx.ErrNoRows
	}
	u.PasswordHash = hash
	return nil
}

type fakeCourses struct {
	CourseStore
	byID map[int64]*model.Course
}

func newFakeCourses(courses ...*model.Course) *fakeCourses {
	f := &fakeCourses{byID: map[int64]*model.Course{}}
	for _, c := range courses {
		f.byID[c.ID] = c
	}
	return f
}

func (f *fakeCourses) GetByID(_ context.Context, id int64) (*model.Course, error) {
	c, ok := f.byID[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	cp := *c
	return &cp, nil
}

func (f *fakeCourses) GetSummary(_ context.Context, id int64) (*model.CourseSummary, error) {
	c, ok := f.byID[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return &model.CourseSummary{ID: c.ID, Title: c.Title, Description: c.Description, Price: c.Price}, nil
}

type fakeModules struct {
	ModuleStore
	modules []model.Module
	lessons []model.Lesson
}

func (f *fakeModules) module(id int64) *model.Module {
	for i := range f.modules {
		if f.modules[i].ID == id {
			return &f.modules[i]
		}
	}
	return nil
}

func (f *fakeModules) ListByCourse(_ context.Context, courseID int64) ([]model.Module, error) {
	var out []model.Module
	for _, m := range f.modules {
		if m.CourseID == courseID {
			out = append(out, m)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Order < out[j].Order })
	return out, nil
}

func (f *fakeModules) ListLessonsByCourse(_ context.Context, courseID int64) ([]model.Lesson, error) {
	var out []model.Lesson
	for _, l := range f.lessons {
		if m := f.module(l.ModuleID); m != nil && m.CourseID == courseID {
			out = append(out, l)
		}
	}
	return out, nil
}

func (f *fakeModules) GetLessonInCourse(_ context.Context, courseID, lessonID int64) (*model.Lesson, error) {
	for _, l := range f.lessons {
		if l.ID != lessonID {
			continue
		}
		if m := f.module(l.ModuleID); m != nil && m.CourseID == courseID {
			cp := l
			return &cp, nil
		}
	}
	return nil, pgx.ErrNoRows
}

type enrollmentKey struct{ user, course int64 }

type fakeEnrollments struct {
	EnrollmentStore
	mu          sync.Mutex
	nextID      int64
	enrollments map[enrollmentKey]*model.Enrollment
	progress    []*model.UserProgress
}

func newFakeEnrollments() *fakeEnrollments {
	return &fakeEnrollments{enrollments: map[enrollmentKey]*model.Enrollment{}}
}

func (f *fakeEnrollments) getOrCreate(userID, courseID int64) (*model.Enrollment, bool) {
	key := enrollmentKey{userID, courseID}
	if e, ok := f.enrollments[key]; ok {
		return e, false
	}
	f.nextID++
	e := &model.Enrollment{ID: f.nextID, UserID: userID, CourseID: courseID, EnrolledOn: time.Now()}
	f.enrollments[key] = e
	return e, true
}

func (f *fakeEnrollments) GetOrCreate(_ context.Context, userID, courseID int64) (*model.Enrollment, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	e, created := f.getOrCreate(userID, courseID)
	return e, created, nil
}

func (f *fakeEnrollments) Exists(_ context.Context, userID, courseID int64) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.enrollments[enrollmentKey{userID, courseID}]
	return ok, nil
}

func (f *fakeEnrollments) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.enrollments)
}

func (f *fakeEnrollments) findProgress(userID, lessonID int64) *model.UserProgress {
	for _, p := range f.progress {
		if p.UserID == userID && p.LessonID == lessonID {
			return p
		}
	}
	return nil
}

func (f *fakeEnrollments) ToggleProgress(_ context.Context, userID, courseID, moduleID, lessonID int64) (*model.UserProgress, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if p := f.findProgress(userID, lessonID); p != nil {
		p.Completed = !p.Completed
		cp := *p
		return &cp, nil
	}
	f.nextID++
	p := &model.UserProgress{ID: f.nextID, UserID: userID, CourseID: courseID, ModuleID: moduleID, LessonID: lessonID, Completed: true}
	f.progress = append(f.progress, p)
	cp := *p
	return &cp, nil
}

func (f *fakeEnrollments) UpsertProgress(_ context.Context, userID, courseID, moduleID, lessonID int64, completed bool) (*model.UserProgress, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if p := f.findProgress(userID, lessonID); p != nil {
		p.Completed = completed
		cp := *p
		return &cp, false, nil
	}
	f.nextID++
	p := &model.UserProgress{ID: f.nextID, UserID: userID, CourseID: courseID, ModuleID: moduleID, LessonID: lessonID, Completed: completed}
	f.progress = append(f.progress, p)
	cp := *p
	return &cp, true, nil
}

func (f *fakeEnrollments) ListProgressByCourse(_ context.Context, userID, courseID int64) ([]model.UserProgress, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []model.UserProgress
	for _, p := range f.progress {
		if p.UserID == userID && p.CourseID == courseID {
			out = append(out, *p)
		}
	}
	return out, nil
}

func (f *fakeEnrollments) ListProgressByUser(_ context.Context, userID int64) ([]model.UserProgress, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []model.UserProgress
	for _, p := range f.progress {
		if p.UserID == userID {
			out = append(out, *p)
		}
	}
	return out, nil
}

type fakeAssessments struct {
	AssessmentStore
	byID map[int64]*model.Assessment
}

func (f *fakeAssessments) GetByID(_ context.Context, id int64) (*model.Assessment, error) {
	a, ok := f.byID[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	cp := *a
	return &cp, nil
}

func (f *fakeAssessments) Create(_ context.Context, a *model.Assessment) error {
	a.ID = int64(len(f.byID) + 1)
	cp := *a
	f.byID[a.ID] = &cp
	return nil
}

type fakeQuestions struct {
	QuestionStore
	byAssessment map[int64][]model.Question
}

func (f *fakeQuestions) ListByAssessment(_ context.Context, assessmentID int64) ([]model.Question, error) {
	return f.byAssessment[assessmentID], nil
}

type fakeAttempts struct {
	AttemptStore
	mu       sync.Mutex
	attempts []*model.UserAttempt
}

func (f *fakeAttempts) Create(_ context.Context, a *model.UserAttempt, responses []model.ResponseInput) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	a.ID = int64(len(f.attempts) + 1)
	a.StartTime = time.Now()
	a.Responses = make([]model.UserResponse, 0, len(responses))
	for i, r := range responses {
		a.Responses = append(a.Responses, model.UserResponse{
			ID:             int64(i + 1),
			AttemptID:      a.ID,
			QuestionID:     r.QuestionID,
			ChosenChoiceID: r.ChosenChoiceID,
			TextResponse:   r.TextResponse,
		})
	}
	cp := *a
	f.attempts = append(f.attempts, &cp)
	return nil
}

func (f *fakeAttempts) CountByUserAndAssessment(_ context.Context, userID, assessmentID int64) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, a := range f.attempts {
		if a.UserID == userID && a.AssessmentID == assessmentID {
			n++
		}
	}
	return n, nil
}

// fakePayments mirrors the conditional update of PaymentRepository: the
// status flips once and enrollment is get-or-create.
type fakePayments struct {
	PaymentStore
	mu          sync.Mutex
	payments    map[int64]*model.Payment
	events      []model.PaymentGatewayEvent
	enrollments *fakeEnrollments
	courses     *fakeCourses
}

func newFakePayments(enrollments *fakeEnrollments, courses *fakeCourses) *fakePayments {
	return &fakePayments{
		payments:    map[int64]*model.Payment{},
		enrollments: enrollments,
		courses:     courses,
	}
}

func (f *fakePayments) Create(_ context.Context, p *model.Payment) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	p.ID = int64(len(f.payments) + 1)
	p.Date = time.Now()
	cp := *p
	f.payments[p.ID] = &cp
	return nil
}

func (f *fakePayments) add(p model.Payment) *model.Payment {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.payments[p.ID] = &p
	return &p
}

func (f *fakePayments) get(id int64) model.Payment {
	f.mu.Lock()
	defer f.mu.Unlock()
	return *f.payments[id]
}

func (f *fakePayments) GetByTxRefForUser(_ context.Context, userID int64, txRef string) (*model.Payment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, p := range f.payments {
		if p.ChapaTxRef != nil && *p.ChapaTxRef == txRef && p.UserID == userID {
			cp := *p
			return &cp, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (f *fakePayments) ListUnpaidByTxRef(_ context.Context, txRef string) ([]model.Payment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []model.Payment
	for _, p := range f.payments {
		if p.ChapaTxRef != nil && *p.ChapaTxRef == txRef && !p.Status {
			out = append(out, *p)
		}
	}
	return out, nil
}

func (f *fakePayments) GetView(_ context.Context, userID, id int64) (*model.PaymentView, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.payments[id]
	if !ok || (userID != 0 && p.UserID != userID) {
		return nil, pgx.ErrNoRows
	}
	title := ""
	if c, ok := f.courses.byID[p.CourseID]; ok {
		title = c.Title
	}
	return &model.PaymentView{
		ID: p.ID, Amount: p.Amount, Status: p.Status, PaymentID: p.PaymentID,
		Course: title, Gateway: p.Gateway, ChapaTxRef: p.ChapaTxRef,
	}, nil
}

func (f *fakePayments) ConfirmAndEnroll(_ context.Context, paymentID int64, externalID string) (*model.PaymentConfirmation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.payments[paymentID]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	if p.Status {
		cp := *p
		return &model.PaymentConfirmation{Payment: &cp}, nil
	}
	p.Status = true
	p.PaymentID = &externalID

	f.enrollments.mu.Lock()
	e, _ := f.enrollments.getOrCreate(p.UserID, p.CourseID)
	f.enrollments.mu.Unlock()

	cp := *p
	return &model.PaymentConfirmation{Payment: &cp, Enrollment: e, Newly: true}, nil
}

func (f *fakePayments) CreateEvent(_ context.Context, e *model.PaymentGatewayEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	e.ID = int64(len(f.events) + 1)
	f.events = append(f.events, *e)
	return nil
}

func (f *fakePayments) lastEvent() model.PaymentGatewayEvent {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.events[len(f.events)-1]
}

// Gateway and notifier doubles.

type stubPayPal struct {
	mu       sync.Mutex
	verified bool
	err      error
	calls    int
	gotRaw   []byte
}

func (s *stubPayPal) VerifyIPN(_ context.Context, raw []byte) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	s.gotRaw = raw
	return s.verified, s.err
}

type stubChapa struct {
	result *gateway.ChapaVerification
	err    error
	calls  int
}

func (s *stubChapa) Verify(context.Context, string) (*gateway.ChapaVerification, error) {
	s.calls++
	return s.result, s.err
}

type recordingNotifier struct {
	mu        sync.Mutex
	confirmed []int64
}

func (n *recordingNotifier) PaymentConfirmed(_ context.Context, c *model.PaymentConfirmation) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.confirmed = append(n.confirmed, c.Payment.ID)
}

func (n *recordingNotifier) count() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.confirmed)
}

func ptr[T any](v T) *T { return &v }

func sign(secret string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}
