package githubapi_test

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rawasy/aderlee/pkg/githubapi"
)

func newTestClient(t *testing.T, handler http.Handler, opts ...githubapi.Option) *githubapi.Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	opts = append([]githubapi.Option{githubapi.WithBaseURL(server.URL)}, opts...)
	client, err := githubapi.New("test-token", opts...)
	require.NoError(t, err)
	return client
}

func TestNewRequiresToken(t *testing.T) {
	_, err := githubapi.New("")
	require.Error(t, err)
}

func TestCreateRepoSendsTokenAndBody(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/user/repos", r.URL.Path)
		require.Equal(t, "token test-token", r.Header.Get("Authorization"))
		require.Equal(t, "application/vnd.github.v3+json", r.Header.Get("Accept"))
		require.Equal(t, "application/json", r.Header.Get("Content-Type"))

		var payload map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
		require.Equal(t, "my-project", payload["name"])
		require.Equal(t, true, payload["private"])
		require.Equal(t, "A test project", payload["description"])

		w.WriteHeader(http.StatusCreated)
		json.NewEncoder(w).Encode(githubapi.Repository{
			Name:     "my-project",
			FullName: "khaled/my-project",
			Private:  true,
		})
	}))

	repo, err := client.CreateRepo(t.Context(), "my-project", true, "A test project")
	require.NoError(t, err)
	assert.Equal(t, "khaled/my-project", repo.FullName)
	assert.True(t, repo.Private)
}

func TestListReposDefaultsToAll(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/user/repos", r.URL.Path)
		require.Equal(t, "all", r.URL.Query().Get("type"))
		json.NewEncoder(w).Encode([]githubapi.Repository{{Name: "one"}, {Name: "two"}})
	}))

	repos, err := client.ListRepos(t.Context(), "")
	require.NoError(t, err)
	assert.Len(t, repos, 2)
}

func TestGetRepoResolvesOwnerOnce(t *testing.T) {
	userCalls := 0
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/user":
			userCalls++
			json.NewEncoder(w).Encode(githubapi.User{Login: "khaled"})
		case "/repos/khaled/demo":
			json.NewEncoder(w).Encode(githubapi.Repository{Name: "demo", FullName: "khaled/demo"})
		default:
			t.Errorf("unexpected path %s", r.URL.Path)
			w.WriteHeader(http.StatusNotFound)
		}
	}))

	for range 2 {
		repo, err := client.GetRepo(t.Context(), "demo")
		require.NoError(t, err)
		assert.Equal(t, "khaled/demo", repo.FullName)
	}

	// The login is cached after the first lookup.
	assert.Equal(t, 1, userCalls)
}

func TestCreateFileEncodesContent(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPut, r.Method)
		require.Equal(t, "/repos/khaled/demo/contents/configs/app.env", r.URL.Path)

		var payload struct {
			Message string `json:"message"`
			Content string `json:"content"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
		require.Equal(t, "Add file", payload.Message)

		decoded, err := base64.StdEncoding.DecodeString(payload.Content)
		require.NoError(t, err)
		require.Equal(t, "API_KEY=secret", string(decoded))

		w.WriteHeader(http.StatusCreated)
		w.Write([]byte(`{}`))
	}), githubapi.WithOwner("khaled"))

	err := client.CreateFile(t.Context(), "demo", "configs/app.env", "API_KEY=secret", "")
	require.NoError(t, err)
}

func TestGetFileUnwrapsBase64(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/repos/khaled/demo/contents/secrets.txt", r.URL.Path)
		// The API wraps base64 content with newlines.
		json.NewEncoder(w).Encode(map[string]string{
			"content":  "ZGJfcGFzc3dvcmQgPSBo\ndW50ZXIyCg==\n",
			"encoding": "base64",
		})
	}), githubapi.WithOwner("khaled"))

	content, err := client.GetFile(t.Context(), "demo", "secrets.txt")
	require.NoError(t, err)
	assert.Equal(t, "db_password = hunter2\n", content)
}

func TestCreateIssueSendsEmptyLabelList(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/repos/khaled/demo/issues", r.URL.Path)

		var payload map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
		require.Equal(t, []any{}, payload["labels"])

		w.WriteHeader(http.StatusCreated)
		json.NewEncoder(w).Encode(githubapi.Issue{Number: 7, Title: "bug", State: "open"})
	}), githubapi.WithOwner("khaled"))

	issue, err := client.CreateIssue(t.Context(), "demo", "bug", "details", nil)
	require.NoError(t, err)
	assert.Equal(t, 7, issue.Number)
}

func TestCreateReleaseNameFallsBackToTag(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/repos/khaled/demo/releases", r.URL.Path)

		var payload map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
		require.Equal(t, "v1.0.0", payload["tag_name"])
		require.Equal(t, "v1.0.0", payload["name"])

		w.WriteHeader(http.StatusCreated)
		json.NewEncoder(w).Encode(githubapi.Release{ID: 42, TagName: "v1.0.0", Name: "v1.0.0"})
	}), githubapi.WithOwner("khaled"))

	release, err := client.CreateRelease(t.Context(), "demo", "v1.0.0", "", "notes", false)
	require.NoError(t, err)
	assert.Equal(t, int64(42), release.ID)
}

func TestOrgReposFollowsPagination(t *testing.T) {
	pages := map[string]int{"1": 100, "2": 3}
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/orgs/rawasy/repos", r.URL.Path)
		require.Equal(t, "100", r.URL.Query().Get("per_page"))

		count, ok := pages[r.URL.Query().Get("page")]
		require.True(t, ok, "unexpected page %s", r.URL.Query().Get("page"))

		batch := make([]githubapi.Repository, count)
		for i := range batch {
			batch[i] = githubapi.Repository{Name: fmt.Sprintf("repo-%s-%d", r.URL.Query().Get("page"), i)}
		}
		json.NewEncoder(w).Encode(batch)
	}))

	repos, err := client.OrgRepos(t.Context(), "rawasy")
	require.NoError(t, err)
	assert.Len(t, repos, 103)
}

func TestErrorResponsesCarryStatusAndMessage(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		json.NewEncoder(w).Encode(map[string]string{"message": "Not Found"})
	}), githubapi.WithOwner("khaled"))

	_, err := client.GetRepo(t.Context(), "missing")
	require.Error(t, err)

	var apiErr *githubapi.APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusNotFound, apiErr.StatusCode)
	assert.Equal(t, "Not Found", apiErr.Message)
}
