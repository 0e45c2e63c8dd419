package services

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/examport/attempt-service/internal/events"
	"github.com/examport/attempt-service/internal/models"
	"github.com/examport/attempt-service/internal/validator"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newAttemptServiceForTest() (AttemptService, *MockRepository, *events.MockEventPublisher) {
	repo := NewMockRepository()
	publisher := events.NewMockEventPublisher(testLogger())
	notifier := NewNotificationEventService(publisher, testLogger())
	svc := NewAttemptService(repo, repo.exams, repo.bandMaps, testLogger(), validator.New(), notifier)
	return svc, repo, publisher
}

func confirmedBooking() *models.Booking {
	sections, _ := json.Marshal([]models.SectionType{models.SectionListening, models.SectionWriting})
	return &models.Booking{
		ID:               10,
		StudentID:        "student-1",
		TeacherID:        "teacher-1",
		ExamID:           5,
		Exam:             models.Exam{ID: 5, Title: "IELTS Mock 3", ExamType: models.ExamTypeIELTS},
		Status:           models.BookingConfirmed,
		AssignedSections: datatypes.JSON(sections),
	}
}

func TestCreateFromBooking_Success(t *testing.T) {
	svc, repo, publisher := newAttemptServiceForTest()
	ctx := context.Background()
	booking := confirmedBooking()

	repo.bookings.On("GetByID", ctx, uint(10)).Return(booking, nil)
	repo.attempts.On("GetByBooking", ctx, uint(10)).Return(nil, gorm.ErrRecordNotFound)
	repo.attempts.On("Create", ctx, mock.AnythingOfType("*models.Attempt")).Return(nil)
	repo.bookings.On("UpdateStatus", ctx, uint(10), models.BookingInProgress).Return(nil)
	repo.attempts.On("GetByIDWithDetails", ctx, uint(1)).Return(&models.Attempt{
		ID:        1,
		BookingID: 10,
		StudentID: "student-1",
		ExamID:    5,
		Status:    models.AttemptStatusInProgress,
		Sections: []models.AttemptSection{
			{ID: 1, Type: models.SectionListening, Status: models.SectionStatusNotStarted},
			{ID: 2, Type: models.SectionWriting, Status: models.SectionStatusNotStarted},
		},
	}, nil)

	attempt, err := svc.CreateFromBooking(ctx, &CreateAttemptRequest{BookingID: 10}, Caller{ID: "student-1", Role: models.RoleStudent})

	assert.NoError(t, err)
	assert.Len(t, attempt.Sections, 2)
	assert.Equal(t, models.AttemptStatusInProgress, attempt.Status)

	published := publisher.GetPublishedEvents()
	assert.Len(t, published, 1)
	assert.Equal(t, events.EventAttemptCreated, published[0].Type)
	payload, ok := published[0].Data.(events.AttemptCreatedEvent)
	assert.True(t, ok)
	// The exam relation is not loaded on a freshly created attempt; the
	// title must come from the booking.
	assert.Equal(t, "IELTS Mock 3", payload.ExamTitle)
	assert.Equal(t, "teacher-1", payload.TeacherID)
	repo.attempts.AssertExpectations(t)
	repo.bookings.AssertExpectations(t)
}

func TestCreateFromBooking_NotConfirmed(t *testing.T) {
	svc, repo, _ := newAttemptServiceForTest()
	ctx := context.Background()
	booking := confirmedBooking()
	booking.Status = models.BookingPending

	repo.bookings.On("GetByID", ctx, uint(10)).Return(booking, nil)

	_, err := svc.CreateFromBooking(ctx, &CreateAttemptRequest{BookingID: 10}, Caller{ID: "student-1", Role: models.RoleStudent})

	assert.ErrorIs(t, err, ErrBookingNotConfirmed)
	repo.attempts.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestCreateFromBooking_BookingAlreadyUsed(t *testing.T) {
	svc, repo, _ := newAttemptServiceForTest()
	ctx := context.Background()

	repo.bookings.On("GetByID", ctx, uint(10)).Return(confirmedBooking(), nil)
	repo.attempts.On("GetByBooking", ctx, uint(10)).Return(&models.Attempt{ID: 99}, nil)

	_, err := svc.CreateFromBooking(ctx, &CreateAttemptRequest{BookingID: 10}, Caller{ID: "student-1", Role: models.RoleStudent})

	assert.ErrorIs(t, err, ErrBookingAlreadyUsed)
	assert.True(t, IsConflict(err))
}

func TestCreateFromBooking_WrongStudent(t *testing.T) {
	svc, repo, _ := newAttemptServiceForTest()
	ctx := context.Background()

	repo.bookings.On("GetByID", ctx, uint(10)).Return(confirmedBooking(), nil)

	_, err := svc.CreateFromBooking(ctx, &CreateAttemptRequest{BookingID: 10}, Caller{ID: "someone-else", Role: models.RoleStudent})

	assert.Error(t, err)
	assert.True(t, IsUnauthorized(err))
}

func TestStartSection_IdempotentReentry(t *testing.T) {
	svc, repo, _ := newAttemptServiceForTest()
	ctx := context.Background()
	caller := Caller{ID: "student-1", Role: models.RoleStudent}

	attempt := &models.Attempt{ID: 1, StudentID: "student-1", ExamID: 5, Status: models.AttemptStatusInProgress}
	section := &models.AttemptSection{ID: 2, AttemptID: 1, Type: models.SectionListening, Status: models.SectionStatusNotStarted}
	exam := &models.Exam{
		ID:       5,
		ExamType: models.ExamTypeIELTS,
		Sections: []models.ExamSection{{Type: models.SectionListening, Duration: 30}},
	}

	repo.attempts.On("GetByID", ctx, uint(1)).Return(attempt, nil)
	repo.attempts.On("GetSection", ctx, uint(1), models.SectionListening).Return(section, nil)
	repo.exams.On("GetByIDWithDetails", ctx, uint(5)).Return(exam, nil)
	repo.attempts.On("UpdateSection", ctx, section).Return(nil).Once()

	first, err := svc.StartSection(ctx, 1, models.SectionListening, caller)
	assert.NoError(t, err)
	assert.Equal(t, 30, first.Duration)
	assert.NotNil(t, first.Section.StartedAt)
	startedAt := *first.Section.StartedAt

	// Re-entry returns the same clock and does not write again.
	second, err := svc.StartSection(ctx, 1, models.SectionListening, caller)
	assert.NoError(t, err)
	assert.Equal(t, startedAt, *second.Section.StartedAt)
	repo.attempts.AssertExpectations(t)
}

func TestEndSection_ClosesSection(t *testing.T) {
	svc, repo, _ := newAttemptServiceForTest()
	ctx := context.Background()
	caller := Caller{ID: "student-1", Role: models.RoleStudent}

	attempt := &models.Attempt{ID: 1, StudentID: "student-1", ExamID: 5, Status: models.AttemptStatusInProgress}
	section := &models.AttemptSection{ID: 2, AttemptID: 1, Type: models.SectionListening, Status: models.SectionStatusNotStarted}

	repo.attempts.On("GetByID", ctx, uint(1)).Return(attempt, nil)
	repo.attempts.On("GetSection", ctx, uint(1), models.SectionListening).Return(section, nil)
	repo.attempts.On("UpdateSection", ctx, section).Return(nil).Once()

	got, err := svc.EndSection(ctx, 1, models.SectionListening, caller)

	assert.NoError(t, err)
	assert.Equal(t, models.SectionStatusCompleted, got.Status)
	assert.NotNil(t, got.EndedAt)
	// A section ended without ever being started gets its clock backfilled.
	assert.NotNil(t, got.StartedAt)
	assert.Equal(t, *got.EndedAt, *got.StartedAt)
	repo.attempts.AssertExpectations(t)
}

func TestEndSection_RejectsSecondClose(t *testing.T) {
	svc, repo, _ := newAttemptServiceForTest()
	ctx := context.Background()
	caller := Caller{ID: "student-1", Role: models.RoleStudent}

	startedAt := time.Now().Add(-20 * time.Minute)
	endedAt := time.Now().Add(-time.Minute)
	attempt := &models.Attempt{ID: 1, StudentID: "student-1", ExamID: 5, Status: models.AttemptStatusInProgress}
	section := &models.AttemptSection{
		ID:        2,
		AttemptID: 1,
		Type:      models.SectionListening,
		Status:    models.SectionStatusCompleted,
		StartedAt: &startedAt,
		EndedAt:   &endedAt,
	}

	repo.attempts.On("GetByID", ctx, uint(1)).Return(attempt, nil)
	repo.attempts.On("GetSection", ctx, uint(1), models.SectionListening).Return(section, nil)

	_, err := svc.EndSection(ctx, 1, models.SectionListening, caller)

	assert.ErrorIs(t, err, ErrSectionLocked)
	assert.Equal(t, endedAt, *section.EndedAt)
	repo.attempts.AssertNotCalled(t, "UpdateSection", mock.Anything, mock.Anything)
}

func TestSaveSectionAnswers_OverwritesWholesale(t *testing.T) {
	svc, repo, _ := newAttemptServiceForTest()
	ctx := context.Background()
	caller := Caller{ID: "student-1", Role: models.RoleStudent}

	attempt := &models.Attempt{ID: 1, StudentID: "student-1", ExamID: 5, Status: models.AttemptStatusInProgress}
	prev, _ := json.Marshal(map[string]json.RawMessage{
		"7": json.RawMessage(`{"answer":false}`),
		"8": json.RawMessage(`{"selected":"A"}`),
	})
	section := &models.AttemptSection{
		ID:        2,
		AttemptID: 1,
		Type:      models.SectionListening,
		Status:    models.SectionStatusInProgress,
		Answers:   datatypes.JSON(prev),
	}
	questions := []models.Question{
		{ID: 7, Type: models.QuestionTrueFalse},
		{ID: 8, Type: models.QuestionSingleChoice},
	}

	repo.attempts.On("GetByID", ctx, uint(1)).Return(attempt, nil)
	repo.attempts.On("GetSection", ctx, uint(1), models.SectionListening).Return(section, nil)
	repo.exams.On("GetSectionQuestions", ctx, uint(5), models.SectionListening).Return(questions, nil)
	repo.attempts.On("UpdateSection", ctx, section).Return(nil)

	err := svc.SaveSectionAnswers(ctx, 1, models.SectionListening, &SaveAnswersRequest{
		Answers: map[string]json.RawMessage{
			"7": json.RawMessage(`{"answer":true}`),
		},
	}, caller)

	assert.NoError(t, err)
	var stored map[string]json.RawMessage
	assert.NoError(t, json.Unmarshal(section.Answers, &stored))
	assert.Len(t, stored, 1)
	assert.JSONEq(t, `{"answer":true}`, string(stored["7"]))
}

func TestSaveSectionAnswers_RejectedAfterCompletion(t *testing.T) {
	svc, repo, _ := newAttemptServiceForTest()
	ctx := context.Background()
	caller := Caller{ID: "student-1", Role: models.RoleStudent}

	attempt := &models.Attempt{ID: 1, StudentID: "student-1", ExamID: 5, Status: models.AttemptStatusInProgress}
	original := datatypes.JSON(`{"7":{"answer":true}}`)
	section := &models.AttemptSection{
		ID:        2,
		AttemptID: 1,
		Type:      models.SectionListening,
		Status:    models.SectionStatusCompleted,
		Answers:   original,
	}

	repo.attempts.On("GetByID", ctx, uint(1)).Return(attempt, nil)
	repo.attempts.On("GetSection", ctx, uint(1), models.SectionListening).Return(section, nil)

	err := svc.SaveSectionAnswers(ctx, 1, models.SectionListening, &SaveAnswersRequest{
		Answers: map[string]json.RawMessage{"7": json.RawMessage(`{"answer":false}`)},
	}, caller)

	assert.ErrorIs(t, err, ErrSectionLocked)
	assert.Equal(t, original, section.Answers)
	repo.attempts.AssertNotCalled(t, "UpdateSection", mock.Anything, mock.Anything)
}

func TestSaveSectionAnswers_RejectsUnknownQuestion(t *testing.T) {
	svc, repo, _ := newAttemptServiceForTest()
	ctx := context.Background()
	caller := Caller{ID: "student-1", Role: models.RoleStudent}

	attempt := &models.Attempt{ID: 1, StudentID: "student-1", ExamID: 5, Status: models.AttemptStatusInProgress}
	section := &models.AttemptSection{ID: 2, AttemptID: 1, Type: models.SectionListening, Status: models.SectionStatusInProgress}

	repo.attempts.On("GetByID", ctx, uint(1)).Return(attempt, nil)
	repo.attempts.On("GetSection", ctx, uint(1), models.SectionListening).Return(section, nil)
	repo.exams.On("GetSectionQuestions", ctx, uint(5), models.SectionListening).Return([]models.Question{
		{ID: 7, Type: models.QuestionTrueFalse},
	}, nil)

	err := svc.SaveSectionAnswers(ctx, 1, models.SectionListening, &SaveAnswersRequest{
		Answers: map[string]json.RawMessage{"999": json.RawMessage(`{"answer":true}`)},
	}, caller)

	assert.Error(t, err)
	assert.True(t, IsValidation(err))
}

func TestSubmitWriting_OnlyOnce(t *testing.T) {
	svc, repo, _ := newAttemptServiceForTest()
	ctx := context.Background()
	caller := Caller{ID: "student-1", Role: models.RoleStudent}

	attempt := &models.Attempt{ID: 1, StudentID: "student-1", ExamID: 5, Status: models.AttemptStatusInProgress}
	section := &models.AttemptSection{ID: 3, AttemptID: 1, Type: models.SectionWriting, Status: models.SectionStatusInProgress}

	repo.attempts.On("GetByID", ctx, uint(1)).Return(attempt, nil)
	repo.attempts.On("GetSection", ctx, uint(1), models.SectionWriting).Return(section, nil)
	repo.attempts.On("GetWritingSubmission", ctx, uint(3)).Return(nil, gorm.ErrRecordNotFound).Once()
	repo.attempts.On("CreateWritingSubmission", ctx, mock.AnythingOfType("*models.WritingSubmission")).Return(nil).Once()

	sub, err := svc.SubmitWriting(ctx, 1, &WritingSubmissionRequest{
		Task1Text: "The chart shows three trends.",
		Task2Text: "Some people believe that exams measure little.",
	}, caller)
	assert.NoError(t, err)
	assert.Equal(t, 5, sub.Task1WordCount)
	assert.Equal(t, 7, sub.Task2WordCount)

	repo.attempts.On("GetWritingSubmission", ctx, uint(3)).Return(sub, nil)
	_, err = svc.SubmitWriting(ctx, 1, &WritingSubmissionRequest{Task1Text: "second try"}, caller)
	assert.ErrorIs(t, err, ErrWritingAlreadySaved)
}

func TestSubmitAttempt_AlreadySubmitted(t *testing.T) {
	svc, repo, _ := newAttemptServiceForTest()
	ctx := context.Background()

	submittedAt := time.Now()
	repo.attempts.On("GetByIDWithDetails", ctx, uint(1)).Return(&models.Attempt{
		ID:          1,
		StudentID:   "student-1",
		Status:      models.AttemptStatusSubmitted,
		SubmittedAt: &submittedAt,
	}, nil)

	_, err := svc.SubmitAttempt(ctx, 1, Caller{ID: "student-1", Role: models.RoleStudent})

	assert.ErrorIs(t, err, ErrAttemptAlreadySubmitted)
	repo.attempts.AssertNotCalled(t, "MarkSubmitted", mock.Anything, mock.Anything, mock.Anything)
}

func TestSubmitAttempt_LosesRaceToConcurrentSubmit(t *testing.T) {
	svc, repo, _ := newAttemptServiceForTest()
	ctx := context.Background()

	repo.attempts.On("GetByIDWithDetails", ctx, uint(1)).Return(&models.Attempt{
		ID:        1,
		StudentID: "student-1",
		Status:    models.AttemptStatusInProgress,
	}, nil)
	repo.attempts.On("MarkSubmitted", ctx, uint(1), mock.AnythingOfType("time.Time")).Return(false, nil)

	_, err := svc.SubmitAttempt(ctx, 1, Caller{ID: "student-1", Role: models.RoleStudent})

	assert.ErrorIs(t, err, ErrAttemptAlreadySubmitted)
}

func TestSubmitAttempt_ScoresAndNotifies(t *testing.T) {
	svc, repo, publisher := newAttemptServiceForTest()
	ctx := context.Background()

	answers, _ := json.Marshal(map[string]json.RawMessage{
		"7": json.RawMessage(`{"answer":true}`),
		"8": json.RawMessage(`{"selected":"B"}`),
	})
	attempt := &models.Attempt{
		ID:        1,
		BookingID: 10,
		StudentID: "student-1",
		ExamID:    5,
		Status:    models.AttemptStatusInProgress,
		Exam:      models.Exam{ID: 5, Title: "IELTS Mock 3", ExamType: models.ExamTypeIELTS},
		Sections: []models.AttemptSection{
			{ID: 2, AttemptID: 1, Type: models.SectionListening, Status: models.SectionStatusCompleted, Answers: datatypes.JSON(answers)},
			{ID: 3, AttemptID: 1, Type: models.SectionWriting, Status: models.SectionStatusInProgress},
		},
	}
	questions := []models.Question{
		{ID: 7, Type: models.QuestionTrueFalse, MaxScore: 1, AnswerKey: datatypes.JSON(`{"answer":true}`)},
		{ID: 8, Type: models.QuestionSingleChoice, MaxScore: 1, AnswerKey: datatypes.JSON(`{"correct":"B"}`)},
	}
	entries := []models.BandMapEntry{
		{ExamType: models.ExamTypeIELTS, SectionType: models.SectionListening, MinRaw: 2, MaxRaw: 2, Band: 9.0},
		{ExamType: models.ExamTypeIELTS, SectionType: models.SectionListening, MinRaw: 0, MaxRaw: 1, Band: 1.0},
	}

	repo.attempts.On("GetByIDWithDetails", ctx, uint(1)).Return(attempt, nil)
	repo.attempts.On("MarkSubmitted", ctx, uint(1), mock.AnythingOfType("time.Time")).Return(true, nil)
	repo.attempts.On("UpdateSection", ctx, mock.AnythingOfType("*models.AttemptSection")).Return(nil)
	repo.bookings.On("UpdateStatus", ctx, uint(10), models.BookingCompleted).Return(nil)
	repo.exams.On("GetByIDWithDetails", ctx, uint(5)).Return(&attempt.Exam, nil)
	repo.exams.On("GetSectionQuestions", ctx, uint(5), models.SectionListening).Return(questions, nil)
	repo.bandMaps.On("GetEntries", ctx, models.ExamTypeIELTS, models.SectionListening).Return(entries, nil)
	repo.bookings.On("GetByID", ctx, uint(10)).Return(&models.Booking{ID: 10, TeacherID: "teacher-1"}, nil)

	result, err := svc.SubmitAttempt(ctx, 1, Caller{ID: "student-1", Role: models.RoleStudent})
	assert.NoError(t, err)

	listening := result.Sections[0]
	assert.NotNil(t, listening.RawScore)
	assert.Equal(t, 2, *listening.RawScore)
	assert.Equal(t, 2, *listening.MaxScore)
	assert.NotNil(t, listening.BandScore)
	assert.Equal(t, 9.0, *listening.BandScore)

	// Writing has no band yet, so no overall band.
	assert.Nil(t, result.BandOverall)
	assert.True(t, listening.Locked())
	assert.True(t, result.Sections[1].Locked())

	types := make([]events.EventType, 0)
	for _, e := range publisher.GetPublishedEvents() {
		types = append(types, e.Type)
	}
	assert.Contains(t, types, events.EventAttemptSubmitted)
	assert.Contains(t, types, events.EventManualGradingRequired)
}
