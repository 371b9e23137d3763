package repo

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Ashu11-A/BetScraper-API-sub000/internal/model"
)

func newRepo(t *testing.T) (*Postgres, sqlmock.Sqlmock) {
	t.Helper()
	mockDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { mockDB.Close() })
	return NewPostgres(sqlx.NewDb(mockDB, "postgres")), mock
}

func expectationsMet(t *testing.T, mock sqlmock.Sqlmock) {
	t.Helper()
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unfulfilled expectations: %v", err)
	}
}

func TestCreateTask_InsertsScheduled(t *testing.T) {
	p, mock := newRepo(t)
	now := time.Now()

	mock.ExpectQuery("INSERT INTO tasks").
		WithArgs(sqlmock.AnyArg(), "Scheduled", int64(3), nil, int64(9)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "created_at", "updated_at"}).AddRow(42, now, now))

	task := &model.Task{Bet: model.Bet{ID: 3}, Cron: &model.Cron{ID: 9}}
	require.NoError(t, p.CreateTask(context.Background(), task))

	assert.Equal(t, int64(42), task.ID)
	assert.Equal(t, model.TaskScheduled, task.Status)
	assert.NotEmpty(t, task.UUID)
	expectationsMet(t, mock)
}

func TestGetTask_MapsJoinedRow(t *testing.T) {
	p, mock := newRepo(t)
	now := time.Now()
	cols := []string{"id", "uuid", "status", "error_message", "duration", "scheduled_at", "finished_at",
		"created_at", "updated_at", "bet_id", "bet_name", "bet_url", "bet_status", "bet_score",
		"user_id", "user_name", "cron_id", "cron_expression"}

	mock.ExpectQuery("SELECT .+ FROM tasks t").
		WithArgs(int64(5)).
		WillReturnRows(sqlmock.NewRows(cols).AddRow(
			5, "u-5", "Running", nil, nil, now, nil, now, now,
			3, "Casa", "https://casa.bet", "none", 0,
			nil, nil, 9, "0 */6 * * *",
		))

	task, err := p.GetTask(context.Background(), 5)
	require.NoError(t, err)
	assert.Equal(t, model.TaskRunning, task.Status)
	assert.Equal(t, "https://casa.bet", task.Bet.URL)
	require.NotNil(t, task.ScheduledAt)
	assert.Nil(t, task.FinishedAt)
	assert.Nil(t, task.User)
	require.NotNil(t, task.Cron)
	assert.Equal(t, "0 */6 * * *", task.Cron.Expression)
	expectationsMet(t, mock)
}

func TestGetTask_NotFound(t *testing.T) {
	p, mock := newRepo(t)
	mock.ExpectQuery("SELECT .+ FROM tasks t").WithArgs(int64(1)).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	_, err := p.GetTask(context.Background(), 1)
	assert.ErrorIs(t, err, model.ErrNotFound)
}

func TestTransitionTask_Conditional(t *testing.T) {
	p, mock := newRepo(t)
	finished := time.Now()
	dur := int64(1500)

	mock.ExpectExec("UPDATE tasks SET").
		WithArgs(int64(7), "Running", "Completed", nil, sqlmock.AnyArg(), dur, nil).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("UPDATE tasks SET").
		WithArgs(int64(7), "Running", "Completed", nil, sqlmock.AnyArg(), dur, nil).
		WillReturnResult(sqlmock.NewResult(0, 0))

	patch := model.TaskPatch{FinishedAt: &finished, Duration: &dur}
	require.NoError(t, p.TransitionTask(context.Background(), 7, model.TaskRunning, model.TaskCompleted, patch))

	err := p.TransitionTask(context.Background(), 7, model.TaskRunning, model.TaskCompleted, patch)
	assert.ErrorIs(t, err, model.ErrInvalidTransition)
	expectationsMet(t, mock)
}

func TestTransitionTask_RejectsOutsideTable(t *testing.T) {
	p, mock := newRepo(t)
	err := p.TransitionTask(context.Background(), 1, model.TaskCompleted, model.TaskRunning, model.TaskPatch{})
	assert.ErrorIs(t, err, model.ErrInvalidTransition)
	expectationsMet(t, mock)
}

func TestCreateProperty_WrapsDriverError(t *testing.T) {
	p, mock := newRepo(t)
	mock.ExpectQuery("INSERT INTO properties").WillReturnError(errors.New("connection reset"))

	err := p.CreateProperty(context.Background(), &model.Property{TaskID: 1})
	assert.ErrorIs(t, err, model.ErrPersistence)
	assert.Contains(t, err.Error(), "connection reset")
}

func TestListProperties_DecodesJSONColumns(t *testing.T) {
	p, mock := newRepo(t)
	cols := []string{"id", "task_id", "proportion_percentage", "scroll_percentage", "distance_to_top",
		"is_hidden", "is_visible", "is_in_viewport", "is_intersecting_viewport", "has_child_nodes",
		"viewport", "element_box", "page_dimensions",
		"contrast", "text", "text_color", "text_rgb", "background_color", "background_rgb"}

	mock.ExpectQuery("SELECT .+ FROM properties").WithArgs(int64(2)).
		WillReturnRows(sqlmock.NewRows(cols).AddRow(
			1, 2, 10.0, 5.0, 120.0, false, true, true, true, true,
			[]byte(`{"width":1920,"height":1080}`), []byte(`{"x":1,"y":2,"width":300,"height":40}`), []byte(`{"width":1920,"height":4000}`),
			4.5, "18+", "rgb(0, 0, 0)", []byte(`{"r":0,"g":0,"b":0}`), "rgb(255, 255, 255)", []byte(`{"r":255,"g":255,"b":255}`),
		))

	props, err := p.ListProperties(context.Background(), 2)
	require.NoError(t, err)
	require.Len(t, props, 1)
	assert.Equal(t, 300.0, props[0].ElementBox.Width)
	assert.Equal(t, 120.0, props[0].DistanceToTop)
	assert.Equal(t, model.Size{Width: 1920, Height: 1080}, props[0].Viewport)
	assert.Equal(t, model.RGB{R: 255, G: 255, B: 255}, props[0].BackgroundRGB)
	expectationsMet(t, mock)
}

func TestSetOCRCompliances_ReplacesInTransaction(t *testing.T) {
	p, mock := newRepo(t)

	mock.ExpectBegin()
	mock.ExpectExec("DELETE FROM ocr_compliances").WithArgs(int64(4)).WillReturnResult(sqlmock.NewResult(0, 3))
	mock.ExpectExec("INSERT INTO ocr_compliances").WithArgs(int64(4), "{1,3}").WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectCommit()

	require.NoError(t, p.SetOCRCompliances(context.Background(), 4, []int64{1, 3}))
	expectationsMet(t, mock)
}

func TestSetOCRCompliances_EmptySetOnlyDeletes(t *testing.T) {
	p, mock := newRepo(t)

	mock.ExpectBegin()
	mock.ExpectExec("DELETE FROM ocr_compliances").WithArgs(int64(4)).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	require.NoError(t, p.SetOCRCompliances(context.Background(), 4, nil))
	expectationsMet(t, mock)
}

func TestImagesByHash_AggregatesOCRIDs(t *testing.T) {
	p, mock := newRepo(t)
	mock.ExpectQuery("SELECT .+ FROM images i").WithArgs("abc").
		WillReturnRows(sqlmock.NewRows([]string{"id", "hash", "path", "content", "ocr_ids"}).
			AddRow(1, "abc", "tasks/1/0.png", nil, []byte("{3,4}")).
			AddRow(2, "abc", "tasks/2/0.png", []byte(`{"Jogue","com responsabilidade"}`), []byte("{}")))

	imgs, err := p.ImagesByHash(context.Background(), "abc")
	require.NoError(t, err)
	require.Len(t, imgs, 2)
	assert.Nil(t, imgs[0].Content)
	assert.Equal(t, []int64{3, 4}, imgs[0].OCRIDs)
	assert.Equal(t, []string{"Jogue", "com responsabilidade"}, imgs[1].Content)
	assert.Empty(t, imgs[1].OCRIDs)
	expectationsMet(t, mock)
}

func TestDeleteImage_RollsBackWhenMissing(t *testing.T) {
	p, mock := newRepo(t)

	mock.ExpectBegin()
	mock.ExpectExec("DELETE FROM ocr_images").WithArgs(int64(8)).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("DELETE FROM images").WithArgs(int64(8)).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	err := p.DeleteImage(context.Background(), 8)
	assert.ErrorIs(t, err, model.ErrNotFound)
	expectationsMet(t, mock)
}

func TestListCompliances(t *testing.T) {
	p, mock := newRepo(t)
	mock.ExpectQuery("SELECT id, value, type FROM compliances").
		WillReturnRows(sqlmock.NewRows([]string{"id", "value", "type"}).
			AddRow(1, "Jogue com responsabilidade", "ResponsibleGamblingAdvisement").
			AddRow(2, "18+", "LegalAgeAdvisement"))

	vocab, err := p.ListCompliances(context.Background())
	require.NoError(t, err)
	require.Len(t, vocab, 2)
	assert.Equal(t, model.LegalAgeAdvisement, vocab[1].Type)
	expectationsMet(t, mock)
}

func TestListScheduledBets(t *testing.T) {
	p, mock := newRepo(t)
	mock.ExpectQuery("SELECT .+ FROM bets b JOIN crons c").
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "url", "status", "score", "cron_id", "cron_expression"}).
			AddRow(3, "Casa", "https://casa.bet", "suspect", 10, 9, "@every 6h"))

	got, err := p.ListScheduledBets(context.Background())
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, model.BetSuspect, got[0].Bet.Status)
	assert.Equal(t, "@every 6h", got[0].Cron.Expression)
	expectationsMet(t, mock)
}
