package analyzer

import (
	"context"
	"errors"
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/ibeckermayer/hnpulse/internal/analyzer/providers"
	"github.com/ibeckermayer/hnpulse/internal/types"
)

type fakeProvider struct {
	reply string
	err   error
	reqs  []providers.Request
}

func (f *fakeProvider) Name() string  { return "fake" }
func (f *fakeProvider) Model() string { return "fake-1" }

func (f *fakeProvider) Complete(_ context.Context, req providers.Request) (string, error) {
	f.reqs = append(f.reqs, req)
	return f.reply, f.err
}

var sampleComments = []types.Comment{
	{Author: "alice", Content: "Rust fixes this."},
	{Author: "bob", Content: "Go is fine."},
}

func TestPerspective(t *testing.T) {
	fp := &fakeProvider{reply: `Here you go:
{"title":"Lang wars","summary":"People argue.","sentiment":"Mixed","viewpoints":[
 {"statement":"Rust is safer","support_percentage":60},
 {"statement":"Go is simpler","support_percentage":"40%"}]}
Thanks!`}
	a := NewWithProvider(fp, zap.NewNop())

	p, err := a.Perspective(context.Background(), "Languages", "body", sampleComments)
	require.NoError(t, err)
	assert.Equal(t, "Lang wars", p.Title)
	assert.Equal(t, "mixed", p.Sentiment)
	require.Len(t, p.Viewpoints, 2)
	assert.Equal(t, 40.0, p.Viewpoints[1].SupportPercentage)

	require.Len(t, fp.reqs, 1)
	assert.True(t, fp.reqs[0].JSON)
	assert.Contains(t, fp.reqs[0].Prompt, "- alice: Rust fixes this.")
	assert.Contains(t, fp.reqs[0].System, "maximum 5 distinct viewpoints")
}

func TestPerspectiveMalformed(t *testing.T) {
	a := NewWithProvider(&fakeProvider{reply: "I cannot help with that."}, nil)

	_, err := a.Perspective(context.Background(), "t", "", sampleComments)
	var genErr *GenerationError
	require.ErrorAs(t, err, &genErr)
	assert.Equal(t, "perspective", genErr.Kind)
	assert.ErrorIs(t, err, ErrMalformedResponse)
}

func TestPerspectiveProviderError(t *testing.T) {
	boom := errors.New("rate limited")
	a := NewWithProvider(&fakeProvider{err: boom}, nil)

	_, err := a.Perspective(context.Background(), "t", "", sampleComments)
	assert.ErrorIs(t, err, boom)
}

func TestPerspectiveRequiresComments(t *testing.T) {
	fp := &fakeProvider{}
	a := NewWithProvider(fp, nil)

	_, err := a.Perspective(context.Background(), "t", "c", nil)
	assert.ErrorIs(t, err, ErrNoComments)
	assert.Empty(t, fp.reqs)
}

func TestSummary(t *testing.T) {
	fp := &fakeProvider{reply: "  A short summary.\n"}
	a := NewWithProvider(fp, nil)

	s, err := a.Summary(context.Background(), "Title", "Long article text")
	require.NoError(t, err)
	assert.Equal(t, "A short summary.", s)
	assert.False(t, fp.reqs[0].JSON)
	assert.Contains(t, fp.reqs[0].Prompt, "Long article text")
}

func TestSummaryEmptyReply(t *testing.T) {
	a := NewWithProvider(&fakeProvider{reply: "   "}, nil)

	_, err := a.Summary(context.Background(), "Title", "text")
	assert.ErrorIs(t, err, providers.ErrEmptyResponse)
}

func TestExchangeLog(t *testing.T) {
	dir := t.TempDir()
	a := NewWithProvider(&fakeProvider{reply: "ok"}, nil, WithExchangeLog(dir))

	_, err := a.Summary(context.Background(), "Title", "text")
	require.NoError(t, err)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.True(t, strings.HasSuffix(entries[0].Name(), "-summary.json"))
}

func TestMaxInputChars(t *testing.T) {
	fp := &fakeProvider{reply: `{"summary":"s","viewpoints":[]}`}
	a := NewWithProvider(fp, nil, WithMaxInputChars(200))

	comments := make([]types.Comment, 50)
	for i := range comments {
		comments[i] = types.Comment{Author: "u", Content: strings.Repeat("x", 20)}
	}
	_, err := a.Perspective(context.Background(), "t", strings.Repeat("c", 500), comments)
	require.NoError(t, err)
	assert.LessOrEqual(t, len(fp.reqs[0].Prompt), 200)
	assert.Contains(t, fp.reqs[0].Prompt, "- u: ")
}
