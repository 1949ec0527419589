// Package animerec embeds the anime recommendation pipeline in a Go program.
//
// The client connects to the same vector store the API server uses (Valkey,
// Redis or Qdrant), talks to an OpenAI-compatible embedding endpoint and,
// optionally, a chat model that reorders the final shortlist.
//
//	client, _ := animerec.New(ctx,
//	    animerec.WithValkey("localhost:6379", ""),
//	    animerec.WithEmbedding("http://localhost:8081/v1", "", "sentence-transformers/all-MiniLM-L6-v2", 384),
//	)
//	defer client.Close()
//
//	res, _ := client.Recommend(ctx, "melancholic space western",
//	    animerec.TopK(5),
//	    animerec.MinYear(1995),
//	    animerec.ExcludeGenres("Comedy"),
//	)
//	for _, r := range res.Items {
//	    fmt.Println(r.Title, r.Score)
//	}
//
// # Catalog maintenance
//
// Ingest crawls the public catalog API into the local JSONL catalog and
// Reindex embeds that catalog into the vector store:
//
//	_, _ = client.Ingest(ctx, 1, 20)
//	_, _ = client.Reindex(ctx, true)
package animerec
