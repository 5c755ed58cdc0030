package apollo

// ValidateIdentities guards a continuous clustering submission. It fails with a
// *MalformedInputError when an entry of present has no article id, and otherwise
// with a *DuplicateArticleError when an identity appears in both collections.
// Identities repeated inside newArticles alone are accepted.
func ValidateIdentities(newArticles []ArticleRef, present []ClusteringResultItem) error {
	presentIDs := make(map[string]struct{}, len(present))
	for i, item := range present {
		if item.Article == nil {
			return &MalformedInputError{Field: "presentArticles", Index: i, Reason: "article is missing"}
		}
		if item.Article.ID == "" {
			return &MalformedInputError{Field: "presentArticles", Index: i, Reason: "article id is missing"}
		}
		presentIDs[item.Article.ID] = struct{}{}
	}

	var dups []string
	reported := make(map[string]struct{})
	for _, ref := range newArticles {
		id := ref.ID()
		if _, ok := presentIDs[id]; !ok {
			continue
		}
		if _, ok := reported[id]; ok {
			continue
		}
		reported[id] = struct{}{}
		dups = append(dups, id)
	}

	if len(dups) > 0 {
		return &DuplicateArticleError{IDs: dups}
	}
	return nil
}
