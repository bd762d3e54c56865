package services

import (
	"bytes"
	"encoding/json"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/Aksuiekbro/debetter-sub000/models"
	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func postingTournament() *models.Tournament {
	tournament := newTestTournament(4, 2)
	addTestTeam(tournament, "team-a", "d1", "d2")
	addTestTeam(tournament, "team-b", "d3", "d4")
	return tournament
}

func validPostingRequest() postingRequest {
	return postingRequest{
		Team1ID:  "team-a",
		Team2ID:  "team-b",
		Location: "Room 101",
		Judges:   []string{"j1"},
		Theme:    "This House would ban homework",
	}
}

func TestValidatePostingData(t *testing.T) {
	testCases := []struct {
		name     string
		mutate   func(*postingRequest)
		expected ErrorKind
	}{
		{name: "valid"},
		{name: "missing team", mutate: func(r *postingRequest) { r.Team2ID = "" }, expected: KindValidation},
		{name: "same team twice", mutate: func(r *postingRequest) { r.Team2ID = "team-a" }, expected: KindValidation},
		{name: "unknown team", mutate: func(r *postingRequest) { r.Team2ID = "ghosts" }, expected: KindValidation},
		{name: "no judges", mutate: func(r *postingRequest) { r.Judges = nil }, expected: KindValidation},
		{name: "judge is a debater", mutate: func(r *postingRequest) { r.Judges = []string{"d1"} }, expected: KindValidation},
		{name: "judge not a participant", mutate: func(r *postingRequest) { r.Judges = []string{"nobody"} }, expected: KindValidation},
		{name: "no venue", mutate: func(r *postingRequest) { r.Location = "" }, expected: KindValidation},
		{name: "virtual link is enough", mutate: func(r *postingRequest) {
			r.Location = ""
			r.VirtualLink = "https://meet.example/abc"
		}},
		{name: "no theme", mutate: func(r *postingRequest) { r.Theme = "" }, expected: KindValidation},
		{name: "round without match number", mutate: func(r *postingRequest) { r.Round = 1 }, expected: KindValidation},
		{name: "bracket link without bracket", mutate: func(r *postingRequest) {
			r.Round = 1
			r.MatchNumber = 1
		}, expected: KindValidation},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			tournament := postingTournament()
			req := validPostingRequest()
			if tc.mutate != nil {
				tc.mutate(&req)
			}
			err := validatePostingData(tournament, &req)
			if tc.expected != "" {
				assert.Equal(t, tc.expected, KindOf(err))
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestApplyCreatePosting(t *testing.T) {
	tournament := postingTournament()
	req := validPostingRequest()
	req.ScheduledTime = time.Now().Add(2 * time.Hour).Format(time.RFC3339)
	req.BatchName = "Round Robin 1"
	now := time.Now()

	posting, err := applyCreatePosting(tournament, "organizer1", &req, now)
	require.NoError(t, err)

	assert.NotEmpty(t, posting.ID)
	assert.Equal(t, models.PostingScheduled, posting.Status)
	assert.Equal(t, "organizer1", posting.CreatedBy)
	assert.Equal(t, "Round Robin 1", posting.BatchName)
	require.NotNil(t, posting.ScheduledTime)
	assert.Len(t, tournament.Postings, 1)

	t.Run("bad timestamp", func(t *testing.T) {
		bad := validPostingRequest()
		bad.ScheduledTime = "tomorrow at noon"
		_, err := applyCreatePosting(tournament, "organizer1", &bad, now)
		assert.Equal(t, KindValidation, KindOf(err))
	})
}

func TestApplyPostingStatus(t *testing.T) {
	posting := &models.Posting{ID: "p1", Status: models.PostingScheduled}
	now := time.Now()

	err := applyPostingStatus(posting, "archived", now)
	assert.Equal(t, KindValidation, KindOf(err))

	require.NoError(t, applyPostingStatus(posting, models.PostingInProgress, now))
	assert.Equal(t, models.PostingInProgress, posting.Status)
	assert.Nil(t, posting.CompletedAt)

	require.NoError(t, applyPostingStatus(posting, models.PostingCompleted, now))
	require.NotNil(t, posting.CompletedAt)
	first := *posting.CompletedAt

	// completing again keeps the original timestamp
	later := now.Add(time.Hour)
	require.NoError(t, applyPostingStatus(posting, models.PostingCompleted, later))
	assert.Equal(t, first, *posting.CompletedAt)
}

// fakeNotifier collects queued notifications and can fail selected users.
type fakeNotifier struct {
	sent    []models.Notification
	failFor map[string]bool
}

func (f *fakeNotifier) Notify(n models.Notification) error {
	if f.failFor[n.UserID] {
		return assert.AnError
	}
	f.sent = append(f.sent, n)
	return nil
}

func TestNotifyPostingParticipants(t *testing.T) {
	tournament := postingTournament()
	posting := &models.Posting{
		ID:      "p1",
		Team1ID: "team-a",
		Team2ID: "team-b",
		Judges:  []string{"j1", "j2"},
		Theme:   "Test theme",
	}

	t.Run("full fan-out", func(t *testing.T) {
		notifier := &fakeNotifier{}
		results := notifyPostingParticipants(notifier, tournament, posting, models.NotificationAssignment)

		assert.Equal(t, 2, results.JudgesNotified)
		assert.Equal(t, 4, results.TeamMembersNotified)
		assert.Empty(t, results.Errors)
		assert.Len(t, notifier.sent, 6)
	})

	t.Run("per-recipient failures are collected", func(t *testing.T) {
		notifier := &fakeNotifier{failFor: map[string]bool{"j1": true, "d3": true}}
		results := notifyPostingParticipants(notifier, tournament, posting, models.NotificationAssignment)

		assert.Equal(t, 1, results.JudgesNotified)
		assert.Equal(t, 3, results.TeamMembersNotified)
		assert.Len(t, results.Errors, 2)
	})
}

// newPostingTestApp wires the posting handlers behind the same stub user
// context as newTestApp, with a fake notifier instead of the DB-backed one.
func newPostingTestApp(t *testing.T) (*fiber.App, *TournamentStore, *fakeNotifier) {
	t.Helper()

	db := setupTestDB(t)
	store := NewTournamentStore(db)
	notifier := &fakeNotifier{}
	svc := NewPostingService(store, notifier)

	app := fiber.New()
	app.Use(func(c *fiber.Ctx) error {
		userID := c.Get("X-User-ID")
		if userID == "" {
			userID = "organizer1"
		}
		c.Locals("user_id", userID)
		return c.Next()
	})
	app.Post("/tournaments/:id/postings", svc.CreatePosting)
	app.Post("/tournaments/:id/postings/batch", svc.CreateBatchPostings)
	app.Patch("/tournaments/:id/postings/:posting_id/status", svc.UpdatePostingStatus)
	app.Put("/tournaments/:id/postings/:posting_id", svc.UpdatePostingDetails)
	app.Post("/tournaments/:id/postings/:posting_id/remind", svc.SendReminders)

	return app, store, notifier
}

func TestCreateBatchPostingsPartialFailure(t *testing.T) {
	app, store, notifier := newPostingTestApp(t)
	require.NoError(t, store.Create(postingTournament()))

	good := validPostingRequest()
	bad := validPostingRequest()
	bad.Team2ID = bad.Team1ID

	status, body := postJSON(t, app, "POST", "/tournaments/t1/postings/batch", fiber.Map{
		"batch_name": "Quarterfinals",
		"postings":   []postingRequest{good, bad},
	})
	require.Equal(t, 201, status, "one good item is enough for a partial success")

	results := body["results"].([]any)
	require.Len(t, results, 1)
	itemErrors := body["errors"].([]any)
	require.Len(t, itemErrors, 1)
	assert.EqualValues(t, 1, itemErrors[0].(map[string]any)["index"], "error points at the failed request item")

	loaded, err := store.Get("t1")
	require.NoError(t, err)
	require.Len(t, loaded.Postings, 1, "the bad item never lands")
	assert.Equal(t, "Quarterfinals", loaded.Postings[0].BatchName)
	assert.NotEmpty(t, notifier.sent, "the created posting still fans out")

	t.Run("all items bad", func(t *testing.T) {
		status, body := postJSON(t, app, "POST", "/tournaments/t1/postings/batch", fiber.Map{
			"postings": []postingRequest{bad, bad},
		})
		assert.Equal(t, 400, status)
		assert.Len(t, body["errors"].([]any), 2)
		assert.Empty(t, body["results"])

		loaded, err := store.Get("t1")
		require.NoError(t, err)
		assert.Len(t, loaded.Postings, 1, "nothing new was created")
	})

	t.Run("empty batch", func(t *testing.T) {
		status, body := postJSON(t, app, "POST", "/tournaments/t1/postings/batch", fiber.Map{})
		assert.Equal(t, 400, status)
		assert.Equal(t, string(KindValidation), body["kind"])
	})
}

func TestPostingMutationsRequireOrganizer(t *testing.T) {
	app, store, _ := newPostingTestApp(t)
	tournament := postingTournament()
	tournament.Postings = append(tournament.Postings, models.Posting{
		ID:       "p1",
		Team1ID:  "team-a",
		Team2ID:  "team-b",
		Location: "Room 101",
		Judges:   []string{"j1"},
		Theme:    "Test theme",
		Status:   models.PostingScheduled,
	})
	require.NoError(t, store.Create(tournament))

	asDebater := func(method, path string, body fiber.Map) int {
		payload, err := json.Marshal(body)
		require.NoError(t, err)
		req := httptest.NewRequest(method, path, bytes.NewReader(payload))
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("X-User-ID", "d1")
		resp, err := app.Test(req, -1)
		require.NoError(t, err)
		return resp.StatusCode
	}

	assert.Equal(t, 400, asDebater("PATCH", "/tournaments/t1/postings/p1/status", fiber.Map{"status": models.PostingCancelled}))
	assert.Equal(t, 400, asDebater("PUT", "/tournaments/t1/postings/p1", fiber.Map{"location": "Room 202"}))
	assert.Equal(t, 400, asDebater("POST", "/tournaments/t1/postings/p1/remind", fiber.Map{}))

	loaded, err := store.Get("t1")
	require.NoError(t, err)
	posting := loaded.FindPosting("p1")
	assert.Equal(t, models.PostingScheduled, posting.Status)
	assert.Equal(t, "Room 101", posting.Location)
	assert.Empty(t, posting.Reminders)

	// the organizer path still works
	status, _ := postJSON(t, app, "PATCH", "/tournaments/t1/postings/p1/status", fiber.Map{"status": models.PostingInProgress})
	assert.Equal(t, 200, status)
	status, _ = postJSON(t, app, "POST", "/tournaments/t1/postings/p1/remind", fiber.Map{})
	assert.Equal(t, 200, status)
}

func TestBatchPostingsSkipStampWhenFanOutFails(t *testing.T) {
	app, store, notifier := newPostingTestApp(t)
	notifier.failFor = map[string]bool{"j1": true}
	require.NoError(t, store.Create(postingTournament()))

	status, _ := postJSON(t, app, "POST", "/tournaments/t1/postings/batch", fiber.Map{
		"postings": []postingRequest{validPostingRequest()},
	})
	require.Equal(t, 201, status)

	loaded, err := store.Get("t1")
	require.NoError(t, err)
	require.Len(t, loaded.Postings, 1)
	assert.False(t, loaded.Postings[0].Notifications.JudgesNotified, "no judge was reached, so nothing is stamped")
	assert.Nil(t, loaded.Postings[0].Notifications.SentAt)
}
