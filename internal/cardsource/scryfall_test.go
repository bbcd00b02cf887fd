package cardsource

import (
	"context"
	"io"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ProfessorFess/Stack-Sage/internal/circuitbreaker"
	"github.com/ProfessorFess/Stack-Sage/internal/domain"
)

type fakeDoer struct {
	responses []*http.Response
	errs      []error
	calls     int
	requests  []*http.Request
}

func (f *fakeDoer) Do(req *http.Request) (*http.Response, error) {
	i := f.calls
	f.calls++
	f.requests = append(f.requests, req)
	if i < len(f.errs) && f.errs[i] != nil {
		return nil, f.errs[i]
	}
	if i < len(f.responses) {
		return f.responses[i], nil
	}
	return f.responses[len(f.responses)-1], nil
}

func jsonResp(status int, body string) *http.Response {
	return &http.Response{
		StatusCode: status,
		Body:       io.NopCloser(strings.NewReader(body)),
	}
}

const lightningBoltJSON = `{
	"name": "Lightning Bolt",
	"mana_cost": "{R}",
	"type_line": "Instant",
	"oracle_text": "Lightning Bolt deals 3 damage to any target.",
	"legalities": {"modern": "legal", "standard": "not_legal", "commander": "legal"},
	"set": "lea",
	"collector_number": "161",
	"color_identity": ["R"]
}`

func TestAdapter_FetchCard_CacheHitSkipsNetwork(t *testing.T) {
	doer := &fakeDoer{responses: []*http.Response{jsonResp(200, lightningBoltJSON)}}
	a := New(Config{Client: doer, FetchRulings: false})

	c1, err := a.FetchCard(context.Background(), "Lightning Bolt")
	require.NoError(t, err)
	assert.Equal(t, "Lightning Bolt", c1.Name)
	assert.Equal(t, domain.LegalityLegal, c1.Legalities["modern"])

	c2, err := a.FetchCard(context.Background(), "lightning bolt")
	require.NoError(t, err)
	assert.Equal(t, c1, c2)
	assert.Equal(t, 1, doer.calls, "second lookup should be served from cache")
}

func TestAdapter_FetchCard_NotFound(t *testing.T) {
	doer := &fakeDoer{responses: []*http.Response{jsonResp(404, "")}}
	a := New(Config{Client: doer, FetchRulings: false})

	_, err := a.FetchCard(context.Background(), "Not A Real Card")
	require.Error(t, err)
	assert.Equal(t, domain.KindNotFound, domain.KindOf(err))
}

func TestAdapter_FetchCard_EmptyName(t *testing.T) {
	a := New(Config{Client: &fakeDoer{}})
	_, err := a.FetchCard(context.Background(), "   ")
	require.Error(t, err)
	assert.Equal(t, domain.KindInvalidQuery, domain.KindOf(err))
}

func TestAdapter_FetchCard_CircuitOpensAfterRepeatedFailures(t *testing.T) {
	doer := &fakeDoer{responses: []*http.Response{
		jsonResp(500, ""), jsonResp(500, ""),
	}}
	a := New(Config{
		Client:         doer,
		CircuitBreaker: circuitbreaker.Config{FailureThreshold: 2, SuccessThreshold: 1, Timeout: time.Minute},
	})

	_, err := a.FetchCard(context.Background(), "Card One")
	require.Error(t, err)
	_, err = a.FetchCard(context.Background(), "Card Two")
	require.Error(t, err)

	_, err = a.FetchCard(context.Background(), "Card Three")
	require.Error(t, err)
	assert.Equal(t, domain.KindUpstreamUnavailable, domain.KindOf(err))
	assert.Equal(t, 2, doer.calls, "open circuit should reject the third lookup without a request")
}

func TestAdapter_CheckLegality(t *testing.T) {
	doer := &fakeDoer{responses: []*http.Response{jsonResp(200, lightningBoltJSON)}}
	a := New(Config{Client: doer, FetchRulings: false})

	status, err := a.CheckLegality(context.Background(), "Lightning Bolt", "standard")
	require.NoError(t, err)
	assert.Equal(t, domain.LegalityNotLegal, status)

	status, err = a.CheckLegality(context.Background(), "Lightning Bolt", "vintage")
	require.NoError(t, err)
	assert.Equal(t, domain.LegalityUnknown, status)
}
