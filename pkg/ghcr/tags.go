package ghcr

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
)

type TagsService interface {
	List(ctx context.Context, repository, image string) ([]string, error)
}

type tagsService struct {
	client *Client
}

// List returns every tag of repository/image. An image with no tags yields
// an empty slice.
func (s *tagsService) List(ctx context.Context, repository, image string) ([]string, error) {
	path := repoPath(repository, image) + "/tags/list"
	respData, err := s.client.DoRequest(ctx, http.MethodGet, path)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch tags for %s/%s: %w", repository, image, err)
	}

	var list TagList
	if err := json.Unmarshal(respData, &list); err != nil {
		return nil, fmt.Errorf("failed to parse tag list: %w", err)
	}
	if list.Tags == nil {
		return []string{}, nil
	}
	return list.Tags, nil
}
