package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stemsi/elearning-backend/internal/model"
)

type fakeRatings struct {
	RatingStore
	saved []model.ReviewRating
}

func (f *fakeRatings) Upsert(_ context.Context, rr *model.ReviewRating) (bool, error) {
	for i := range f.saved {
		if f.saved[i].UserID == rr.UserID && f.saved[i].CourseID == rr.CourseID {
			f.saved[i] = *rr
			return false, nil
		}
	}
	rr.ID = int64(len(f.saved) + 1)
	f.saved = append(f.saved, *rr)
	return true, nil
}

func (f *fakeRatings) HasRated(_ context.Context, userID, courseID int64) (bool, error) {
	for _, rr := range f.saved {
		if rr.UserID == userID && rr.CourseID == courseID {
			return true, nil
		}
	}
	return false, nil
}

// Course 1 is paid with modules 10 (lessons 100, 101) and 11 (lesson 110).
// Course 2 is free with module 20 (lesson 200).
func newEnrollmentFixture(t *testing.T) (*EnrollmentService, *fakeEnrollments, *fakeRatings) {
	t.Helper()
	price, err := model.ParseMoney("10")
	require.NoError(t, err)

	courses := newFakeCourses(
		&model.Course{ID: 1, Title: "Paid", Price: &price},
		&model.Course{ID: 2, Title: "Free"},
	)
	modules := &fakeModules{
		modules: []model.Module{
			{ID: 10, CourseID: 1, Order: 1},
			{ID: 11, CourseID: 1, Order: 2},
			{ID: 20, CourseID: 2, Order: 1},
		},
		lessons: []model.Lesson{
			{ID: 100, ModuleID: 10, Order: 1},
			{ID: 101, ModuleID: 10, Order: 2},
			{ID: 110, ModuleID: 11, Order: 1},
			{ID: 200, ModuleID: 20, Order: 1},
		},
	}
	enrollments := newFakeEnrollments()
	ratings := &fakeRatings{}
	return NewEnrollmentService(courses, modules, enrollments, ratings), enrollments, ratings
}

func TestEnroll_FreeCourseIsIdempotent(t *testing.T) {
	svc, enrollments, _ := newEnrollmentFixture(t)
	ctx := context.Background()

	first, created, err := svc.Enroll(ctx, student, 2)
	require.NoError(t, err)
	assert.True(t, created)

	second, created, err := svc.Enroll(ctx, student, 2)
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, 1, enrollments.count())
}

func TestEnroll_PaidCourseRequiresPayment(t *testing.T) {
	svc, enrollments, _ := newEnrollmentFixture(t)

	_, _, err := svc.Enroll(context.Background(), student, 1)
	assert.ErrorIs(t, err, ErrPaymentRequired)
	assert.Zero(t, enrollments.count())
}

func TestEnroll_StaffBypassesPayment(t *testing.T) {
	svc, _, _ := newEnrollmentFixture(t)

	_, created, err := svc.Enroll(context.Background(), Principal{UserID: 1, IsStaff: true}, 1)
	require.NoError(t, err)
	assert.True(t, created)
}

func TestEnroll_UnknownCourse(t *testing.T) {
	svc, _, _ := newEnrollmentFixture(t)

	_, _, err := svc.Enroll(context.Background(), student, 42)
	assert.ErrorIs(t, err, ErrCourseNotFound)
}

func TestToggleLessonProgress_FlipsCompletion(t *testing.T) {
	svc, _, _ := newEnrollmentFixture(t)
	ctx := context.Background()

	p, err := svc.ToggleLessonProgress(ctx, student, 1, 101)
	require.NoError(t, err)
	assert.True(t, p.Completed)
	assert.Equal(t, int64(10), p.ModuleID)

	p, err = svc.ToggleLessonProgress(ctx, student, 1, 101)
	require.NoError(t, err)
	assert.False(t, p.Completed)
}

func TestToggleLessonProgress_LessonOfAnotherCourse(t *testing.T) {
	svc, _, _ := newEnrollmentFixture(t)

	_, err := svc.ToggleLessonProgress(context.Background(), student, 1, 200)
	assert.ErrorIs(t, err, ErrLessonNotInCourse)
}

func TestUpsertProgress_CreatedThenUpdated(t *testing.T) {
	svc, _, _ := newEnrollmentFixture(t)
	ctx := context.Background()
	req := model.UpsertProgressRequest{CourseID: 1, LessonID: 110, Completed: ptr(true)}

	p, created, err := svc.UpsertProgress(ctx, student, req)
	require.NoError(t, err)
	assert.True(t, created)
	assert.True(t, p.Completed)

	req.Completed = ptr(false)
	p, created, err = svc.UpsertProgress(ctx, student, req)
	require.NoError(t, err)
	assert.False(t, created)
	assert.False(t, p.Completed)
}

func TestProgressByCourse_GroupsByCourseID(t *testing.T) {
	svc, _, _ := newEnrollmentFixture(t)
	ctx := context.Background()

	_, err := svc.ToggleLessonProgress(ctx, student, 1, 100)
	require.NoError(t, err)
	_, err = svc.ToggleLessonProgress(ctx, student, 1, 110)
	require.NoError(t, err)
	_, err = svc.ToggleLessonProgress(ctx, student, 2, 200)
	require.NoError(t, err)

	grouped, err := svc.ProgressByCourse(ctx, student)
	require.NoError(t, err)

	require.Len(t, grouped["1"], 2)
	require.Len(t, grouped["2"], 1)
	assert.Equal(t, int64(200), grouped["2"][0].Lesson.ID)
	assert.True(t, grouped["2"][0].Completed)
}

func TestRate_ReplacesPreviousRating(t *testing.T) {
	svc, _, ratings := newEnrollmentFixture(t)
	ctx := context.Background()

	rated, err := svc.HasRated(ctx, student, 1)
	require.NoError(t, err)
	assert.False(t, rated)

	_, err = svc.Rate(ctx, student, 1, model.RateCourseRequest{Rating: 3}, "10.0.0.1")
	require.NoError(t, err)
	rr, err := svc.Rate(ctx, student, 1, model.RateCourseRequest{Rating: 5, Review: "great"}, "10.0.0.1")
	require.NoError(t, err)

	assert.InDelta(t, 5.0, rr.Rating, 1e-9)
	require.Len(t, ratings.saved, 1)
	assert.Equal(t, "great", ratings.saved[0].Review)

	rated, err = svc.HasRated(ctx, student, 1)
	require.NoError(t, err)
	assert.True(t, rated)
}
