// internal/storage/postgres/store_test.go
package postgres

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"marketplace-assistant/internal/common/logger"
	"marketplace-assistant/internal/models"
)

func newTestStore(t *testing.T) (*Store, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return New(db, logger.NewNoOpLogger()), mock
}

// ==========================================
// Events
// ==========================================

func TestGetEvents(t *testing.T) {
	store, mock := newTestStore(t)
	created := time.Now()

	rows := sqlmock.NewRows([]string{"id", "title", "description", "category", "location", "start_date", "is_free", "cost", "view_count", "created_at"}).
		AddRow("e1", "Jazz Night", "live jazz", "music", "Downtown", "2026-03-07", false, 15.0, 120, created).
		AddRow("e2", "Park Cleanup", "community cleanup", "community", "Riverside", "2026-03-07", true, 0.0, 40, created)

	mock.ExpectQuery("SELECT (.+) FROM events WHERE published = true ORDER BY created_at DESC").
		WillReturnRows(rows)

	events, err := store.GetEvents(context.Background())

	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, "Jazz Night", events[0].Title)
	assert.True(t, events[1].IsFree)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetUpcomingEvents(t *testing.T) {
	store, mock := newTestStore(t)

	rows := sqlmock.NewRows([]string{"id", "title", "description", "category", "location", "start_date", "is_free", "cost", "view_count", "created_at"}).
		AddRow("e1", "Bread Festival", "bread", "food", "Town Square", "2026-03-06", true, 0.0, 10, time.Now())

	mock.ExpectQuery("SELECT (.+) FROM events").
		WithArgs(7, 10).
		WillReturnRows(rows)

	events, err := store.GetUpcomingEvents(context.Background(), 7, 10)

	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, "Bread Festival", events[0].Title)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetPopularEvents(t *testing.T) {
	store, mock := newTestStore(t)

	rows := sqlmock.NewRows([]string{"id", "title", "description", "category", "location", "start_date", "is_free", "cost", "view_count", "created_at"}).
		AddRow("e1", "Night Market", "vendors", "food", "Main St", "2026-03-09", true, 0.0, 420, time.Now())

	mock.ExpectQuery("SELECT (.+) FROM events WHERE published = true ORDER BY view_count DESC").
		WithArgs(5).
		WillReturnRows(rows)

	events, err := store.GetPopularEvents(context.Background(), 5)

	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, 420, events[0].ViewCount)
	assert.NoError(t, mock.ExpectationsWereMet())
}

// ==========================================
// Listings and Businesses
// ==========================================

func TestGetListings(t *testing.T) {
	store, mock := newTestStore(t)

	rows := sqlmock.NewRows([]string{"id", "title", "description", "category", "location", "is_free", "cost", "created_at"}).
		AddRow("l1", "Used Bike", "mountain bike", "sports", "Midtown", false, 80.0, time.Now())

	mock.ExpectQuery("SELECT (.+) FROM listings WHERE active = true").
		WillReturnRows(rows)

	listings, err := store.GetListings(context.Background())

	require.NoError(t, err)
	require.Len(t, listings, 1)
	assert.Equal(t, "Used Bike", listings[0].Title)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetBusiness(t *testing.T) {
	store, mock := newTestStore(t)

	rows := sqlmock.NewRows([]string{"id", "name", "category", "description", "address", "phone", "email", "hours"}).
		AddRow("biz-1", "Corner Bakery", "bakery", "sourdough", "12 Main St", "555-0100", "hello@test", "7-3")

	mock.ExpectQuery("SELECT (.+) FROM businesses WHERE id =").
		WithArgs("biz-1").
		WillReturnRows(rows)

	business, err := store.GetBusiness(context.Background(), "biz-1")

	require.NoError(t, err)
	assert.Equal(t, "Corner Bakery", business.Name)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetBusinessesByCategory(t *testing.T) {
	store, mock := newTestStore(t)

	rows := sqlmock.NewRows([]string{"id", "name", "category", "description", "address", "phone", "email", "hours"}).
		AddRow("biz-1", "Corner Bakery", "bakery", "", "", "", "", "").
		AddRow("biz-2", "Rival Bakery", "bakery", "", "", "", "", "")

	mock.ExpectQuery("SELECT (.+) FROM businesses WHERE category =").
		WithArgs("bakery").
		WillReturnRows(rows)

	businesses, err := store.GetBusinessesByCategory(context.Background(), "bakery")

	require.NoError(t, err)
	require.Len(t, businesses, 2)
	assert.NoError(t, mock.ExpectationsWereMet())
}

// ==========================================
// Agent Configs
// ==========================================

func TestGetAgentConfig(t *testing.T) {
	store, mock := newTestStore(t)

	knowledgeBase, _ := json.Marshal(models.KnowledgeBase{
		BusinessInfo: "family bakery",
		FAQData:      []models.FAQ{{Question: "Q", Answer: "A"}},
	})

	rows := sqlmock.NewRows([]string{"business_id", "active", "personality", "welcome_message",
		"max_response_length", "plan", "monthly_limit", "include_platform_context", "knowledge_base"}).
		AddRow("biz-1", true, "friendly", "Hi!", 400, "metered", 100, true, knowledgeBase)

	mock.ExpectQuery("SELECT (.+) FROM agent_configs WHERE business_id =").
		WithArgs("biz-1").
		WillReturnRows(rows)

	config, err := store.Get(context.Background(), "biz-1")

	require.NoError(t, err)
	require.NotNil(t, config)
	assert.True(t, config.Active)
	assert.Equal(t, models.PersonalityFriendly, config.Personality)
	assert.Equal(t, models.PlanMetered, config.Plan)
	assert.Equal(t, "family bakery", config.KnowledgeBase.BusinessInfo)
	require.Len(t, config.KnowledgeBase.FAQData, 1)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetAgentConfig_MissingReturnsNil(t *testing.T) {
	store, mock := newTestStore(t)

	mock.ExpectQuery("SELECT (.+) FROM agent_configs WHERE business_id =").
		WithArgs("biz-404").
		WillReturnRows(sqlmock.NewRows([]string{"business_id"}))

	config, err := store.Get(context.Background(), "biz-404")

	require.NoError(t, err)
	assert.Nil(t, config)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateAgentConfig(t *testing.T) {
	store, mock := newTestStore(t)

	mock.ExpectExec("INSERT INTO agent_configs").
		WithArgs("biz-1", true, "casual", "Hey!", 300, "unlimited", 0, false, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := store.Create(context.Background(), models.AgentConfig{
		BusinessID:        "biz-1",
		Active:            true,
		Personality:       models.PersonalityCasual,
		WelcomeMessage:    "Hey!",
		MaxResponseLength: 300,
		Plan:              models.PlanUnlimited,
	})

	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateAgentConfig_MissingRow(t *testing.T) {
	store, mock := newTestStore(t)

	mock.ExpectExec("UPDATE agent_configs SET").
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := store.Update(context.Background(), models.AgentConfig{BusinessID: "biz-404"})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "no such config")
}

// ==========================================
// Search Events
// ==========================================

func TestRecordSearch(t *testing.T) {
	store, mock := newTestStore(t)
	created := time.Now()

	mock.ExpectExec("INSERT INTO search_events").
		WithArgs("se-1", "free jazz", "user-7", 3, false, 25, created).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := store.RecordSearch(context.Background(), models.SearchEvent{
		ID:          "se-1",
		Query:       "free jazz",
		UserID:      "user-7",
		ResultCount: 3,
		LatencyMs:   25,
		CreatedAt:   created,
	})

	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRecordSearch_AnonymousUser(t *testing.T) {
	store, mock := newTestStore(t)

	mock.ExpectExec("INSERT INTO search_events").
		WithArgs("se-2", "bikes", nil, 0, true, 5, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := store.RecordSearch(context.Background(), models.SearchEvent{
		ID:          "se-2",
		Query:       "bikes",
		ResultCount: 0,
		Fallback:    true,
		LatencyMs:   5,
		CreatedAt:   time.Now(),
	})

	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}
