package ledger

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

type unknownAction struct{}

func (unknownAction) Name() string { return "Unknown" }
func (unknownAction) isAction()    {}

func TestReduce_UnknownActionIsNoOp(t *testing.T) {
	// GIVEN: An action type the reducer has never heard of
	// WHEN: Reducing
	// THEN: The input state comes back untouched - totality over panic

	now := time.Date(2026, time.March, 15, 0, 0, 0, 0, time.UTC)
	s := State{Seq: 3, SearchQuery: "x"}

	next := Reduce(s, unknownAction{}, now)
	assert.Equal(t, s, next)
}

func TestRoundMoney_HalfUp(t *testing.T) {
	assert.True(t, roundMoney(decimal.NewFromFloat(199.5)).Equal(decimal.NewFromInt(200)))
	assert.True(t, roundMoney(decimal.NewFromFloat(199.49)).Equal(decimal.NewFromInt(199)))
}

func TestNextID_Format(t *testing.T) {
	s, id := State{}.nextID("txn")
	assert.Equal(t, "txn_000001", id)
	assert.Equal(t, uint64(1), s.Seq)

	_, id2 := s.nextID("txn")
	assert.Equal(t, "txn_000002", id2)
}
