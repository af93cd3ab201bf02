package dto

import (
	"testing"

	"guess-the-word/internal/service/game"
)

func TestNewGameDetail(t *testing.T) {
	g := game.New("abc")
	_ = g.AddPlayer(game.Player{ID: "Player1", Name: "Alice"})
	g.StartGame()
	g.StartRound()

	detail := NewGameDetail(g.Snapshot())

	if detail.ID != "abc" || detail.PlayerCount != 1 || detail.State != game.STATE_IN_PROGRESS {
		t.Fatalf("unexpected summary: %+v", detail.GameSummary)
	}
	if detail.CurrentRound == nil {
		t.Fatalf("current round should be present")
	}
	if len(detail.Rounds) != 0 {
		t.Fatalf("want no archived rounds, got %d", len(detail.Rounds))
	}
}
