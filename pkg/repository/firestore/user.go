package firestore

import (
	"context"
	"slices"
	"strings"

	"cloud.google.com/go/firestore"
	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/riskdesk/pkg/domain/model"
	"github.com/secmon-lab/riskdesk/pkg/domain/types"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

type userDocument struct {
	ID          string `firestore:"id"`
	Name        string `firestore:"name"`
	Email       string `firestore:"email"`
	Department  string `firestore:"department"`
	Role        string `firestore:"role"`
	SlackUserID string `firestore:"slack_user_id"`
}

func (d *userDocument) toModel() *model.User {
	return &model.User{
		ID:          types.UserID(d.ID),
		Name:        d.Name,
		Email:       d.Email,
		Department:  d.Department,
		Role:        types.UserRole(d.Role),
		SlackUserID: d.SlackUserID,
	}
}

type userRepository struct {
	client           *firestore.Client
	collectionPrefix string
}

func newUserRepository(client *firestore.Client) *userRepository {
	return &userRepository{
		client:           client,
		collectionPrefix: "",
	}
}

func (r *userRepository) usersCollection() string {
	return CollectionName(r.collectionPrefix, CollectionUsers)
}

func (r *userRepository) Get(ctx context.Context, id types.UserID) (*model.User, error) {
	snap, err := r.client.Collection(r.usersCollection()).Doc(id.String()).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, goerr.Wrap(ErrNotFound, "user not found", goerr.V("id", id))
		}
		return nil, goerr.Wrap(err, "failed to get user", goerr.V("id", id))
	}

	var doc userDocument
	if err := snap.DataTo(&doc); err != nil {
		return nil, goerr.Wrap(err, "failed to decode user", goerr.V("id", id))
	}
	return doc.toModel(), nil
}

func (r *userRepository) List(ctx context.Context) ([]*model.User, error) {
	return r.query(ctx, r.client.Collection(r.usersCollection()).Query)
}

func (r *userRepository) ListOwners(ctx context.Context, dept string) ([]*model.User, error) {
	q := r.client.Collection(r.usersCollection()).
		Where("role", "==", types.UserRoleRiskOwner.String()).
		Where("department", "==", dept)
	return r.query(ctx, q)
}

func (r *userRepository) SaveMany(ctx context.Context, users []*model.User) error {
	for _, u := range users {
		if err := u.ID.Validate(); err != nil {
			return goerr.Wrap(err, "invalid user")
		}
		doc := &userDocument{
			ID:          u.ID.String(),
			Name:        u.Name,
			Email:       u.Email,
			Department:  u.Department,
			Role:        u.Role.String(),
			SlackUserID: u.SlackUserID,
		}
		if _, err := r.client.Collection(r.usersCollection()).Doc(doc.ID).Set(ctx, doc); err != nil {
			return goerr.Wrap(err, "failed to save user", goerr.V("id", u.ID))
		}
	}
	return nil
}

func (r *userRepository) query(ctx context.Context, q firestore.Query) ([]*model.User, error) {
	iter := q.Documents(ctx)
	defer iter.Stop()

	var users []*model.User
	for {
		snap, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, goerr.Wrap(err, "failed to iterate users")
		}

		var doc userDocument
		if err := snap.DataTo(&doc); err != nil {
			return nil, goerr.Wrap(err, "failed to decode user", goerr.V("doc_id", snap.Ref.ID))
		}
		users = append(users, doc.toModel())
	}

	slices.SortFunc(users, func(a, b *model.User) int {
		return strings.Compare(string(a.ID), string(b.ID))
	})
	return users, nil
}
