package bot

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cardroomlabs/rummyd/internal/deck"
	"github.com/cardroomlabs/rummyd/internal/randutil"
)

func testView() View {
	top := deck.NewCard(deck.Hearts, deck.Seven)
	return View{
		GameID:   "g1",
		PlayerID: "bot1",
		Hand: []deck.Card{
			deck.NewCard(deck.Spades, deck.Two),
			deck.NewCard(deck.Hearts, deck.Five),
			deck.NewCard(deck.Clubs, deck.King),
		},
		DiscardTop:         &top,
		DrawPileCount:      40,
		OpponentCardCounts: []int{13},
	}
}

func TestRandomProviderDecides(t *testing.T) {
	p := NewRandomProvider(randutil.New(1))
	view := testView()

	decision, err := p.Decide(context.Background(), view)
	require.NoError(t, err)

	held := map[string]bool{}
	for _, c := range view.Hand {
		held[c.ID] = true
	}
	assert.True(t, held[decision.CardToDiscard], "discard must come from the hand")
}

func TestRandomProviderDeterministicPerSeed(t *testing.T) {
	view := testView()

	run := func(seed int64) []Decision {
		p := NewRandomProvider(randutil.New(seed))
		out := make([]Decision, 0, 20)
		for i := 0; i < 20; i++ {
			d, err := p.Decide(context.Background(), view)
			require.NoError(t, err)
			out = append(out, d)
		}
		return out
	}

	assert.Equal(t, run(7), run(7))
}

func TestRandomProviderNeverPicksEmptyDiscard(t *testing.T) {
	p := NewRandomProvider(randutil.New(2))
	view := testView()
	view.DiscardTop = nil

	for i := 0; i < 50; i++ {
		d, err := p.Decide(context.Background(), view)
		require.NoError(t, err)
		assert.False(t, d.DrawFromDiscard)
	}
}

func TestRandomProviderEmptyHand(t *testing.T) {
	p := NewRandomProvider(randutil.New(3))
	_, err := p.Decide(context.Background(), View{PlayerID: "bot1"})
	assert.Error(t, err)
}

func TestHTTPProviderRoundTrip(t *testing.T) {
	view := testView()
	want := Decision{DrawFromDiscard: true, CardToDiscard: view.Hand[2].ID}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		var got View
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		assert.Equal(t, view.PlayerID, got.PlayerID)
		assert.Len(t, got.Hand, len(view.Hand))

		require.NoError(t, json.NewEncoder(w).Encode(want))
	}))
	defer srv.Close()

	p := NewHTTPProvider(srv.URL, time.Second, log.New(io.Discard))
	decision, err := p.Decide(context.Background(), view)
	require.NoError(t, err)
	assert.Equal(t, want, decision)
}

func TestHTTPProviderErrors(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
	}{
		{"server error", func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
		}},
		{"garbage body", func(w http.ResponseWriter, _ *http.Request) {
			_, _ = w.Write([]byte("not json"))
		}},
		{"missing discard", func(w http.ResponseWriter, _ *http.Request) {
			_, _ = w.Write([]byte(`{"drawFromDiscard":true}`))
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(tt.handler)
			defer srv.Close()

			p := NewHTTPProvider(srv.URL, time.Second, log.New(io.Discard))
			_, err := p.Decide(context.Background(), testView())
			assert.Error(t, err)
		})
	}
}

func TestHTTPProviderTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		time.Sleep(200 * time.Millisecond)
	}))
	defer srv.Close()

	p := NewHTTPProvider(srv.URL, 20*time.Millisecond, log.New(io.Discard))
	_, err := p.Decide(context.Background(), testView())
	assert.Error(t, err)
}
