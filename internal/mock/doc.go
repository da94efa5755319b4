// Package mock provides deterministic stand-ins for the embedding,
// completion and extraction ports so services can be tested without
// network access.
//
// Each mock has a function field that overrides its default behaviour:
//
//	emb := mock.NewEmbedder()
//	emb.EmbedFunc = func(ctx context.Context, texts []string) ([][]float32, error) {
//	    return nil, errors.New("quota exceeded")
//	}
package mock
