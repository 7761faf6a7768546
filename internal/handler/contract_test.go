package handler_test

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"
	"github.com/santhosh-tekuri/jsonschema/v5"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/studyplan-api/internal/dto"
	"github.com/noah-isme/studyplan-api/internal/handler"
	"github.com/noah-isme/studyplan-api/internal/models"
)

type weekTracker struct {
	stubTracker
	view dto.WeeklyView
}

func (w *weekTracker) WeeklyView(context.Context, uint) (dto.WeeklyView, error) {
	return w.view, nil
}

func TestWeeklyViewContract(t *testing.T) {
	schemaPath, err := filepath.Abs(filepath.Join("testdata", "weekly_view.schema.json"))
	require.NoError(t, err)

	compiler := jsonschema.NewCompiler()
	schema, err := compiler.Compile("file://" + schemaPath)
	require.NoError(t, err)

	duration := 50
	completedAt := time.Date(2024, 3, 4, 18, 40, 0, 0, time.UTC)
	tracker := &weekTracker{view: dto.WeeklyView{
		StudentID: 7,
		Days: []dto.DaySchedule{
			{Day: string(models.Monday), Slots: []dto.SlotResponse{
				{ID: 1, StudentID: 7, Day: "Monday", TimeRange: "18:00-18:50", Activity: "Mathematics: Algebra", Kind: "study", Subject: "Mathematics", DurationMinutes: &duration, SessionID: "s-1", Completed: true, CompletedAt: &completedAt, IsLate: true},
				{ID: 2, StudentID: 7, Day: "Monday", TimeRange: "18:50-19:00", Activity: "Break", Kind: "break", SessionID: "s-1"},
			}},
			{Day: string(models.Tuesday), Slots: []dto.SlotResponse{}},
		},
	}}

	app := fiber.New()
	group := app.Group("/api/v1", func(c *fiber.Ctx) error {
		c.Locals("user_id", uint(7))
		c.Locals("user_role", "student")
		return c.Next()
	})
	handler.NewScheduleHandler(&stubScheduleService{}, tracker, ownerPolicy{}, zerolog.New(io.Discard)).Register(group)

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/api/v1/students/7/schedule/week", nil), -1)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	defer resp.Body.Close()

	var payload interface{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&payload))
	require.NoError(t, schema.Validate(payload))
}
