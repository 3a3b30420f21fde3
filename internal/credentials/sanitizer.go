package credentials

import (
	"context"
	"log/slog"
	"strconv"

	"github.com/RealZimboGuy/flowstudio/pkg/flowstudio/domain"
)

// Finder looks up credentials shared with a user.
type Finder interface {
	FindForUserByID(ctx context.Context, userID, id int64, credentialType string) (*domain.Credential, error)
	FindForUserByName(ctx context.Context, userID int64, name, credentialType string) ([]domain.Credential, error)
}

type Sanitizer struct {
	finder Finder
}

func NewSanitizer(finder Finder) *Sanitizer {
	return &Sanitizer{finder: finder}
}

// ReplaceInvalidCredentials rewrites the credential references of every enabled
// node so each one either points at a credential shared with user or carries a
// nil id. A reference with a stale id is resolved by name when exactly one
// credential of that name and type is available.
func (s *Sanitizer) ReplaceInvalidCredentials(ctx context.Context, wf *domain.Workflow, user *domain.User) error {
	type cacheKey struct{ credentialType, name string }
	resolved := make(map[cacheKey]*string)

	for i := range wf.Nodes {
		node := &wf.Nodes[i]
		if node.Disabled || len(node.Credentials) == 0 {
			continue
		}
		for credentialType, ref := range node.Credentials {
			if ref.ID != nil {
				ok, err := s.ownsCredential(ctx, user.ID, *ref.ID, credentialType)
				if err != nil {
					return err
				}
				if ok {
					continue
				}
			}

			key := cacheKey{credentialType, ref.Name}
			id, cached := resolved[key]
			if !cached {
				matches, err := s.finder.FindForUserByName(ctx, user.ID, ref.Name, credentialType)
				if err != nil {
					return err
				}
				if len(matches) == 1 {
					found := strconv.FormatInt(matches[0].ID, 10)
					id = &found
				}
				resolved[key] = id
			}
			if id == nil {
				slog.DebugContext(ctx, "Credential reference could not be resolved",
					"node", node.Name, "credentialType", credentialType, "credentialName", ref.Name)
			}
			node.Credentials[credentialType] = domain.CredentialRef{ID: id, Name: ref.Name}
		}
	}
	return nil
}

func (s *Sanitizer) ownsCredential(ctx context.Context, userID int64, rawID, credentialType string) (bool, error) {
	id, err := strconv.ParseInt(rawID, 10, 64)
	if err != nil {
		return false, nil
	}
	c, err := s.finder.FindForUserByID(ctx, userID, id, credentialType)
	if err != nil {
		return false, err
	}
	return c != nil, nil
}
