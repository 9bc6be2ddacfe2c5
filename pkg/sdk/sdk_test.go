package sdk

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/ethanbaker/vulnassist/pkg/chat"
	"github.com/ethanbaker/vulnassist/pkg/nvd"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

var turnStart = time.Date(2025, 10, 1, 12, 0, 0, 0, time.UTC)

// newBackend serves a tiny imitation of the assistant API
func newBackend(t *testing.T) *httptest.Server {
	t.Helper()

	engine := gin.New()
	engine.POST("/api/chat/", func(c *gin.Context) {
		if c.GetHeader("X-API-KEY") != "api-key" || c.GetHeader("Authorization") != "Bearer nvd-key" {
			c.JSON(NewErrorResponse(http.StatusUnauthorized, "Missing credentials", nil).AsGinResponse())
			return
		}

		prompt := c.PostForm("prompt")
		if prompt == "" && c.PostForm("dependency_name") != "" {
			prompt = "check " + c.PostForm("dependency_name") + " " + c.PostForm("dependency_version") + " prefetch=" + c.PostForm("prefetch")
		}
		if prompt == "" {
			c.JSON(NewErrorResponse(http.StatusBadRequest, "Form field 'prompt' is required", nil).AsGinResponse())
			return
		}

		c.Status(http.StatusOK)
		chat.WriteEvent(c.Writer, chat.NewEvent(chat.RoleUser, turnStart, prompt))
		chat.WriteEvent(c.Writer, chat.NewEvent(chat.RoleModel, turnStart, "po"))
		chat.WriteEvent(c.Writer, chat.NewEvent(chat.RoleModel, turnStart, "pong"))
	})
	engine.GET("/api/chat/", func(c *gin.Context) {
		c.Status(http.StatusOK)
		chat.WriteEvent(c.Writer, chat.NewEvent(chat.RoleUser, turnStart, "ping"))
		chat.WriteEvent(c.Writer, chat.NewEvent(chat.RoleModel, turnStart, "pong"))
	})
	engine.GET("/api/health", func(c *gin.Context) {
		c.JSON(NewSuccessResponse("OK", HealthStatus{Batches: 3}).AsGinResponse())
	})
	engine.GET("/api/nvd/search", func(c *gin.Context) {
		if c.Query("version") != "2.14.1" {
			c.JSON(NewErrorResponse(http.StatusBadRequest, "Invalid dependency", "invalid version").AsGinResponse())
			return
		}
		c.JSON(NewSuccessResponse("Search completed successfully", nvd.Result{
			Identifier:      nvd.Identifier{Name: c.Query("name"), Version: c.Query("version"), Vendor: nvd.AnyVendor},
			Platforms:       []nvd.CPE{{Name: "cpe:2.3:a:apache:log4j:2.14.1:*:*:*:*:*:*:*"}},
			Vulnerabilities: []nvd.CVE{{ID: "CVE-2021-44228"}},
		}).AsGinResponse())
	})
	engine.GET("/api/nvd/cpes", func(c *gin.Context) {
		c.JSON(NewSuccessResponse("CPEs retrieved successfully", []nvd.CPE{
			{Name: "cpe:2.3:a:" + c.Query("vendor") + ":" + c.Query("product") + ":" + c.Query("version") + ":*:*:*:*:*:*:*"},
		}).AsGinResponse())
	})
	engine.GET("/api/nvd/cves", func(c *gin.Context) {
		if c.Query("cpe_name") == "" {
			c.JSON(NewErrorResponse(http.StatusBadRequest, "Invalid CPE name", "must not be empty").AsGinResponse())
			return
		}
		c.JSON(NewSuccessResponse("CVEs retrieved successfully", []nvd.CVE{
			{ID: "CVE-2021-44228", CPEName: c.Query("cpe_name")},
		}).AsGinResponse())
	})

	server := httptest.NewServer(engine)
	t.Cleanup(server.Close)
	return server
}

func TestSendMessage(t *testing.T) {
	server := newBackend(t)
	client := NewClient(server.URL+"/", "api-key", "nvd-key")

	var events []chat.Event
	err := client.SendMessage(context.Background(), "ping", func(e chat.Event) error {
		events = append(events, e)
		return nil
	})
	require.NoError(t, err)

	require.Len(t, events, 3)
	assert.Equal(t, chat.RoleUser, events[0].Role)
	assert.Equal(t, "ping", events[0].Content)
	assert.Equal(t, "pong", events[2].Content)
}

func TestSendMessage_CallbackStopsStream(t *testing.T) {
	server := newBackend(t)
	client := NewClient(server.URL, "api-key", "nvd-key")

	stop := errors.New("stop")
	calls := 0
	err := client.SendMessage(context.Background(), "ping", func(e chat.Event) error {
		calls++
		return stop
	})
	assert.ErrorIs(t, err, stop)
	assert.Equal(t, 1, calls)
}

func TestSendMessage_Errors(t *testing.T) {
	server := newBackend(t)

	t.Run("missing credentials", func(t *testing.T) {
		client := NewClient(server.URL, "", "")
		err := client.SendMessage(context.Background(), "ping", func(chat.Event) error { return nil })

		var berr *BackendError
		require.ErrorAs(t, err, &berr)
		assert.Equal(t, http.StatusUnauthorized, berr.StatusCode)
		assert.Equal(t, "Missing credentials", berr.Message)
	})

	t.Run("empty prompt", func(t *testing.T) {
		client := NewClient(server.URL, "api-key", "nvd-key")
		err := client.SendMessage(context.Background(), "", func(chat.Event) error { return nil })

		var berr *BackendError
		require.ErrorAs(t, err, &berr)
		assert.Equal(t, http.StatusBadRequest, berr.StatusCode)
	})
}

func TestCheckDependency(t *testing.T) {
	server := newBackend(t)
	client := NewClient(server.URL, "api-key", "nvd-key")

	var first chat.Event
	err := client.CheckDependency(context.Background(), DependencyCheck{Name: "log4j", Version: "2.14.1", Prefetch: true}, func(e chat.Event) error {
		if first.Role == "" {
			first = e
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, "check log4j 2.14.1 prefetch=true", first.Content)
}

func TestHistory(t *testing.T) {
	server := newBackend(t)
	client := NewClient(server.URL, "", "")

	events, err := client.History(context.Background())
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, "ping", events[0].Content)
	assert.Equal(t, chat.RoleModel, events[1].Role)

	at, err := events[1].Time()
	require.NoError(t, err)
	assert.True(t, at.Equal(turnStart))
}

func TestHealth(t *testing.T) {
	server := newBackend(t)
	client := NewClient(server.URL, "", "")

	status, err := client.Health(context.Background())
	require.NoError(t, err)
	assert.EqualValues(t, 3, status.Batches)
}

func TestSearch(t *testing.T) {
	server := newBackend(t)
	client := NewClient(server.URL, "", "")

	result, err := client.Search(context.Background(), "log4j", "2.14.1", "")
	require.NoError(t, err)
	assert.Equal(t, "log4j", result.Identifier.Name)
	require.Len(t, result.Vulnerabilities, 1)
	assert.Equal(t, "CVE-2021-44228", result.Vulnerabilities[0].ID)

	_, err = client.Search(context.Background(), "log4j", "latest", "")
	var berr *BackendError
	require.ErrorAs(t, err, &berr)
	assert.Equal(t, http.StatusBadRequest, berr.StatusCode)
	assert.Equal(t, "Invalid dependency: invalid version", berr.Message)
}

func TestCPEsAndCVEs(t *testing.T) {
	server := newBackend(t)
	client := NewClient(server.URL, "", "")

	cpes, err := client.CPEs(context.Background(), "log4j", "2.14.1", "apache")
	require.NoError(t, err)
	require.Len(t, cpes, 1)
	assert.Equal(t, "cpe:2.3:a:apache:log4j:2.14.1:*:*:*:*:*:*:*", cpes[0].Name)

	cves, err := client.CVEs(context.Background(), cpes[0].Name)
	require.NoError(t, err)
	require.Len(t, cves, 1)
	assert.Equal(t, cpes[0].Name, cves[0].CPEName)

	_, err = client.CVEs(context.Background(), "")
	var berr *BackendError
	require.ErrorAs(t, err, &berr)
	assert.Equal(t, http.StatusBadRequest, berr.StatusCode)
}
