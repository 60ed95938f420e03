// Package rank orders leads by how much there is to sell them.
package rank

import "leadgenius-engine/internal/domain"

type Scorer interface {
	Score(lead domain.Lead) (score int, tags []string)
}
