package controllers

import (
	"net/http"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/alicebob/miniredis/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/contentswap/contentswap/app/repository"
	"github.com/contentswap/contentswap/internal/pkg/cache"
	"github.com/contentswap/contentswap/internal/pkg/database"
	"github.com/contentswap/contentswap/internal/pkg/session"
	"github.com/contentswap/contentswap/internal/pkg/usercontext"
)

var (
	ctrlDBOnce sync.Once
	ctrlMock   sqlmock.Sqlmock
)

// setupControllerTest wires the global repository factory to a sqlmock
// connection. The factory is initialize-once, so one shared mock backs
// every controller test; each test must drain its expectations before
// returning. Matching is unordered because some handlers do follow-up
// reads from goroutines.
func setupControllerTest(t *testing.T) sqlmock.Sqlmock {
	t.Helper()

	ctrlDBOnce.Do(func() {
		sqlDB, mock, err := sqlmock.New()
		if err != nil {
			panic(err)
		}

		gdb, err := gorm.Open(mysql.New(mysql.Config{
			Conn:                      sqlDB,
			SkipInitializeWithVersion: true,
		}), &gorm.Config{
			SkipDefaultTransaction: true,
			Logger:                 logger.Default.LogMode(logger.Silent),
		})
		if err != nil {
			panic(err)
		}

		mock.MatchExpectationsInOrder(false)
		database.DB = gdb
		repository.InitializeFactory(gdb)
		ctrlMock = mock
	})

	return ctrlMock
}

// setupSessionStore points the session layer at a throwaway redis so
// handlers that log the user in can save a session.
func setupSessionStore(t *testing.T) {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	cache.SetClient(client)
	session.NewSessionStore()
	t.Cleanup(func() { _ = client.Close() })
}

// asUser injects a logged-in user context, standing in for the session
// middleware on protected routes.
func asUser(userID uint) fiber.Handler {
	return func(c *fiber.Ctx) error {
		c.Locals("USER_CONTEXT", usercontext.UserContext{
			UserID:     userID,
			Username:   "tester",
			Email:      "tester@example.com",
			IsLoggedIn: true,
		})
		return c.Next()
	}
}

func postForm(t *testing.T, app *fiber.App, path string, form url.Values) *http.Response {
	t.Helper()

	req, err := http.NewRequest(http.MethodPost, path, strings.NewReader(form.Encode()))
	if err != nil {
		t.Fatalf("build request: %v", err)
	}
	req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationForm)

	resp, err := app.Test(req, 5000)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	return resp
}

func postJSON(t *testing.T, app *fiber.App, path, body string) *http.Response {
	t.Helper()

	req, err := http.NewRequest(http.MethodPost, path, strings.NewReader(body))
	if err != nil {
		t.Fatalf("build request: %v", err)
	}
	req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)

	resp, err := app.Test(req, 5000)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	return resp
}

// waitExpectationsMet polls until every queued expectation was consumed,
// covering reads that handlers kick off in goroutines.
func waitExpectationsMet(t *testing.T, mock sqlmock.Sqlmock) {
	t.Helper()

	deadline := time.Now().Add(2 * time.Second)
	for mock.ExpectationsWereMet() != nil && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}
