package github

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/prbridge/internal/errors"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClient("test-token", WithAPIURL(srv.URL))
}

func TestMergePullRequest_Success(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPut, r.Method)
		require.Equal(t, "/repos/acme/widgets/pulls/7/merge", r.URL.Path)
		require.Equal(t, "Bearer test-token", r.Header.Get("Authorization"))
		require.Equal(t, "application/vnd.github+json", r.Header.Get("Accept"))
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"merged": true, "message": "Pull Request successfully merged"}`))
	})

	result := c.MergePullRequest(context.Background(), "acme/widgets", 7)
	require.True(t, result.OK)
	require.Contains(t, result.Detail, "PR #7")
	require.Contains(t, result.Detail, "acme/widgets")
}

func TestMergePullRequest_RemoteFailureCarriesMessage(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"message": "Not Found"}`))
	})

	result := c.MergePullRequest(context.Background(), "acme/widgets", 99)
	require.False(t, result.OK)
	require.Contains(t, result.Detail, "Not Found")
}

func TestMergePullRequest_TransportFailureIsResult(t *testing.T) {
	c := NewClient("test-token", WithAPIURL("http://127.0.0.1:1"))

	result := c.MergePullRequest(context.Background(), "acme/widgets", 7)
	require.False(t, result.OK)
	require.Contains(t, result.Detail, "Failed to merge")
}

func TestClosePullRequest_Success(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPatch, r.Method)
		require.Equal(t, "/repos/acme/widgets/pulls/7", r.URL.Path)
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"state": "closed"}`))
	})

	result := c.ClosePullRequest(context.Background(), "acme/widgets", 7)
	require.True(t, result.OK)
	require.Contains(t, result.Detail, "Closed pull request #7")
}

func TestClosePullRequest_FailureCarriesStatusAndBody(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		_, _ = w.Write([]byte(`{"message": "Validation Failed"}`))
	})

	result := c.ClosePullRequest(context.Background(), "acme/widgets", 7)
	require.False(t, result.OK)
	require.Contains(t, result.Detail, "422")
}

func TestGetPullRequest_ParsesDetail(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodGet, r.Method)
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{
			"number": 7,
			"title": "Add feature",
			"state": "closed",
			"merged": true,
			"user": {"login": "octocat"},
			"base": {"ref": "main"},
			"head": {"ref": "feature/add"}
		}`))
	})

	detail, err := c.GetPullRequest(context.Background(), "acme/widgets", 7)
	require.NoError(t, err)
	require.Equal(t, 7, detail.Number)
	require.True(t, detail.Merged)
	require.Equal(t, "octocat", detail.User.Login)
	require.Equal(t, "main", detail.Base.Ref)
}

func TestGetPullRequest_Non200IsClassifiedError(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"message": "Not Found"}`))
	})

	_, err := c.GetPullRequest(context.Background(), "acme/widgets", 404)
	require.Error(t, err)
	require.True(t, errors.IsCategory(err, errors.CategoryGitHub))
}

func TestValidateSignature(t *testing.T) {
	payload := []byte(`{"action": "opened"}`)
	secret := "hunter2"

	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(payload)
	valid := "sha256=" + hex.EncodeToString(mac.Sum(nil))

	require.True(t, ValidateSignature(payload, valid, secret))
	require.False(t, ValidateSignature(payload, valid, "wrong-secret"))
	require.False(t, ValidateSignature(payload, "sha256=deadbeef", secret))
	require.False(t, ValidateSignature(payload, "", secret))
	require.False(t, ValidateSignature(payload, valid, ""))
}
