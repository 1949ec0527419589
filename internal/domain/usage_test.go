package domain

import (
	"context"
	"testing"
)

func TestUsage_Context(t *testing.T) {
	if UsageFromContext(context.Background()) != nil {
		t.Fatal("bare context should carry no usage")
	}

	ctx, u := NewContextWithUsage(context.Background())
	UsageFromContext(ctx).AddEmbeddingTokens(0)
	UsageFromContext(ctx).AddEmbeddingTokens(7)
	UsageFromContext(ctx).MarkReranked()

	if u.EmbeddingTokens != 7 || !u.Embedded || !u.Reranked {
		t.Errorf("usage = %+v", *u)
	}
}

func TestUsage_NilSafe(t *testing.T) {
	var u *RequestUsage
	u.AddEmbeddingTokens(5)
	u.MarkReranked()
}
