package bundle

import "fmt"

// ArtifactMismatchError reports a classifier that cannot consume the
// vectors of its paired vectorizer.
type ArtifactMismatchError struct {
	VocabularySize int
	ModelFeatures  int
}

func (e *ArtifactMismatchError) Error() string {
	return fmt.Sprintf("artifact mismatch: vectorizer has %d terms but classifier expects %d features", e.VocabularySize, e.ModelFeatures)
}
