package collector

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/pizzanicky/BettaFish4WGD/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"
)

const searchListing = `{"data":{"children":[
 {"data":{"id":"abc","title":"Go 1.24 released","selftext":"  Swiss tables!  ","author":"gopher","author_fullname":"t2_g",
  "url":"https://go.dev/blog","permalink":"/r/golang/comments/abc/go_124/","score":321,"num_comments":45,"created_utc":1700000000.5}},
 {"data":{"id":"def","title":"Link only","selftext":"","author":"x","url":"https://example.com","permalink":"","score":0,"num_comments":0,"created_utc":1700000100}}
]}}`

func TestPublicClient_SearchPosts(t *testing.T) {
	var got *http.Request
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(searchListing))
	}))
	defer srv.Close()

	pc := newPublicClient("digest-test/1.0", srv.URL, rate.Inf)
	posts, err := pc.SearchPosts(context.Background(), "golang generics", 500)
	require.NoError(t, err)

	require.NotNil(t, got)
	assert.Equal(t, "/search.json", got.URL.Path)
	assert.Equal(t, "golang generics", got.URL.Query().Get("q"))
	assert.Equal(t, "100", got.URL.Query().Get("limit"))
	assert.Equal(t, "new", got.URL.Query().Get("sort"))
	assert.Equal(t, "digest-test/1.0", got.Header.Get("User-Agent"))

	require.Len(t, posts, 2)
	assert.Equal(t, domain.Post{
		PostID:        "abc",
		Content:       "Go 1.24 released\nSwiss tables!",
		LikedCount:    "321",
		CommentCount:  "45",
		SharedCount:   "0",
		SourceKeyword: "golang generics",
		URL:           "https://www.reddit.com/r/golang/comments/abc/go_124/",
		PublishedAt:   1700000000500,
		Nickname:      "gopher",
		UserID:        "t2_g",
	}, posts[0])
	assert.Equal(t, "Link only", posts[1].Content)
	assert.Equal(t, "https://example.com", posts[1].URL)
}

func TestPublicClient_StatusError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	pc := newPublicClient("digest-test/1.0", srv.URL, rate.Inf)
	_, err := pc.SearchPosts(context.Background(), "golang", 10)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "429")
}

func TestMockClient_SearchPosts(t *testing.T) {
	mc := &MockClient{Latency: time.Millisecond}

	posts, err := mc.SearchPosts(context.Background(), "rust", 3)
	require.NoError(t, err)
	require.Len(t, posts, 3)
	for _, p := range posts {
		assert.Equal(t, "rust", p.SourceKeyword)
		assert.NotEmpty(t, p.PostID)
	}
}

func TestNewCollector_Modes(t *testing.T) {
	t.Setenv("REDDIT_USER_AGENT", "")

	_, err := NewCollector("public")
	assert.Error(t, err)

	_, err = NewCollector("carrier-pigeon")
	assert.Error(t, err)

	c, err := NewCollector("mock")
	require.NoError(t, err)
	assert.IsType(t, &MockClient{}, c)
}
