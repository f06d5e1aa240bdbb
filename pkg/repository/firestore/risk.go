package firestore

import (
	"context"
	"time"

	"cloud.google.com/go/firestore"
	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/riskdesk/pkg/domain/interfaces"
	"github.com/secmon-lab/riskdesk/pkg/domain/model"
	"github.com/secmon-lab/riskdesk/pkg/domain/types"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// maxInQueryValues is the Firestore limit of values in an "in" filter
const maxInQueryValues = 30

type riskDocument struct {
	ID                string            `firestore:"id"`
	Description       string            `firestore:"description"`
	Cause             string            `firestore:"cause"`
	Categories        any               `firestore:"categories"`
	CategoryDetails   any               `firestore:"category_details"`
	Department        string            `firestore:"department"`
	ReportedBy        string            `firestore:"reported_by"`
	DocumentRef       string            `firestore:"document_ref"`
	Status            string            `firestore:"status"`
	Level             string            `firestore:"level"`
	OwnerID           string            `firestore:"owner_id"`
	ResidualRating    *int64            `firestore:"residual_rating"`
	PlannedCompletion *time.Time        `firestore:"planned_completion"`
	ReportToBoard     bool              `firestore:"report_to_board"`
	CreatedAt         time.Time         `firestore:"created_at"`
	UpdatedAt         time.Time         `firestore:"updated_at"`
}

func toRiskDocument(r *model.Risk) *riskDocument {
	categories := make([]string, len(r.Categories))
	for i, c := range r.Categories {
		categories[i] = string(c)
	}
	doc := &riskDocument{
		ID:                r.ID.String(),
		Description:       r.Description,
		Cause:             r.Cause,
		Categories:        categories,
		Department:        r.Department,
		ReportedBy:        r.ReportedBy.String(),
		DocumentRef:       r.DocumentRef,
		Status:            r.Status.String(),
		Level:             r.Level.String(),
		OwnerID:           r.OwnerID.String(),
		PlannedCompletion: r.PlannedCompletion,
		ReportToBoard:     r.ReportToBoard,
		CreatedAt:         r.CreatedAt,
		UpdatedAt:         r.UpdatedAt,
	}
	if len(r.CategoryDetails) > 0 {
		details := make(map[string]string, len(r.CategoryDetails))
		for k, v := range r.CategoryDetails {
			details[string(k)] = v
		}
		doc.CategoryDetails = details
	}
	if r.ResidualRating != nil {
		v := int64(*r.ResidualRating)
		doc.ResidualRating = &v
	}
	return doc
}

func (d *riskDocument) toModel() *model.Risk {
	r := &model.Risk{
		ID:                model.RiskID(d.ID),
		Description:       d.Description,
		Cause:             d.Cause,
		Department:        d.Department,
		ReportedBy:        types.UserID(d.ReportedBy),
		DocumentRef:       d.DocumentRef,
		Status:            types.RiskStatus(d.Status),
		Level:             types.RiskLevel(d.Level),
		OwnerID:           types.UserID(d.OwnerID),
		PlannedCompletion: d.PlannedCompletion,
		ReportToBoard:     d.ReportToBoard,
		CreatedAt:         d.CreatedAt,
		UpdatedAt:         d.UpdatedAt,
		Categories:        categoriesFromValue(d.Categories),
		CategoryDetails:   categoryDetailsFromValue(d.CategoryDetails),
	}
	if d.ResidualRating != nil {
		v := int(*d.ResidualRating)
		r.ResidualRating = &v
	}
	return r
}

// categoriesFromValue converts a stored categories field. Anything other than
// a list of strings decodes to no categories so one malformed document never
// fails a read of the collection.
func categoriesFromValue(v any) []types.Category {
	var values []any
	switch x := v.(type) {
	case []any:
		values = x
	case []string:
		for _, c := range x {
			values = append(values, c)
		}
	default:
		return nil
	}

	categories := make([]types.Category, 0, len(values))
	for _, item := range values {
		c, ok := item.(string)
		if !ok {
			return nil
		}
		categories = append(categories, types.Category(c))
	}
	if len(categories) == 0 {
		return nil
	}
	return categories
}

// categoryDetailsFromValue converts a stored category_details field. Malformed
// values decode to nil.
func categoryDetailsFromValue(v any) map[types.Category]string {
	var details map[types.Category]string
	switch x := v.(type) {
	case map[string]any:
		details = make(map[types.Category]string, len(x))
		for k, item := range x {
			d, ok := item.(string)
			if !ok {
				return nil
			}
			details[types.Category(k)] = d
		}
	case map[string]string:
		details = make(map[types.Category]string, len(x))
		for k, d := range x {
			details[types.Category(k)] = d
		}
	default:
		return nil
	}
	if len(details) == 0 {
		return nil
	}
	return details
}

type riskRepository struct {
	client           *firestore.Client
	collectionPrefix string
}

func newRiskRepository(client *firestore.Client) *riskRepository {
	return &riskRepository{
		client:           client,
		collectionPrefix: "",
	}
}

func (r *riskRepository) risksCollection() string {
	return CollectionName(r.collectionPrefix, CollectionRisks)
}

func (r *riskRepository) docRef(id model.RiskID) *firestore.DocumentRef {
	return r.client.Collection(r.risksCollection()).Doc(id.String())
}

func (r *riskRepository) Create(ctx context.Context, risk *model.Risk) (*model.Risk, error) {
	created := risk.Copy()
	if created.ID == "" {
		created.ID = model.NewRiskID()
	}
	now := time.Now().UTC().Truncate(time.Microsecond)
	if created.CreatedAt.IsZero() {
		created.CreatedAt = now
	}
	created.UpdatedAt = now

	if _, err := r.docRef(created.ID).Create(ctx, toRiskDocument(created)); err != nil {
		return nil, goerr.Wrap(err, "failed to create risk", goerr.V("id", created.ID))
	}

	return created, nil
}

func (r *riskRepository) Get(ctx context.Context, id model.RiskID) (*model.Risk, error) {
	snap, err := r.docRef(id).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, goerr.Wrap(ErrNotFound, "risk not found", goerr.V("id", id))
		}
		return nil, goerr.Wrap(err, "failed to get risk", goerr.V("id", id))
	}

	return decodeRisk(snap)
}

func (r *riskRepository) List(ctx context.Context, opts ...interfaces.ListRiskOption) ([]*model.Risk, error) {
	filter := interfaces.BuildListRiskOptions(opts...)

	q := r.client.Collection(r.risksCollection()).Query
	if filter.ReportedBy != "" {
		q = q.Where("reported_by", "==", filter.ReportedBy.String())
	}
	if filter.Status != "" {
		q = q.Where("status", "==", filter.Status.String())
	}
	q = q.OrderBy("created_at", firestore.Desc)

	iter := q.Documents(ctx)
	defer iter.Stop()

	var risks []*model.Risk
	for {
		snap, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, goerr.Wrap(err, "failed to iterate risks")
		}

		risk, err := decodeRisk(snap)
		if err != nil {
			return nil, err
		}
		risks = append(risks, risk)
	}

	return risks, nil
}

func (r *riskRepository) AssignOwner(ctx context.Context, id model.RiskID, ownerID types.UserID) (*model.Risk, bool, error) {
	return r.setOnce(ctx, id, "owner_id", ownerID.String(), func(d *riskDocument) *string {
		return &d.OwnerID
	})
}

func (r *riskRepository) AttachDocument(ctx context.Context, id model.RiskID, ref string) (*model.Risk, bool, error) {
	return r.setOnce(ctx, id, "document_ref", ref, func(d *riskDocument) *string {
		return &d.DocumentRef
	})
}

// setOnce writes value to path inside a transaction only when the field is
// still empty. Concurrent writers are serialized by the transaction retry.
func (r *riskRepository) setOnce(ctx context.Context, id model.RiskID, path, value string, field func(*riskDocument) *string) (*model.Risk, bool, error) {
	ref := r.docRef(id)

	var (
		result  *riskDocument
		written bool
	)
	err := r.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		written = false

		snap, err := tx.Get(ref)
		if err != nil {
			if status.Code(err) == codes.NotFound {
				return goerr.Wrap(ErrNotFound, "risk not found", goerr.V("id", id))
			}
			return goerr.Wrap(err, "failed to get risk", goerr.V("id", id))
		}

		var doc riskDocument
		if err := snap.DataTo(&doc); err != nil {
			return goerr.Wrap(err, "failed to decode risk", goerr.V("id", id))
		}
		result = &doc

		if *field(&doc) != "" {
			return nil
		}

		now := time.Now().UTC().Truncate(time.Microsecond)
		*field(&doc) = value
		doc.UpdatedAt = now
		written = true
		return tx.Update(ref, []firestore.Update{
			{Path: path, Value: value},
			{Path: "updated_at", Value: now},
		})
	})
	if err != nil {
		return nil, false, goerr.Wrap(err, "conditional update failed", goerr.V("id", id), goerr.V("field", path))
	}

	return result.toModel(), written, nil
}

func (r *riskRepository) UpdateAssessment(ctx context.Context, id model.RiskID, assessment *model.RiskAssessment) (*model.Risk, error) {
	ref := r.docRef(id)

	var updated *model.Risk
	err := r.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		snap, err := tx.Get(ref)
		if err != nil {
			if status.Code(err) == codes.NotFound {
				return goerr.Wrap(ErrNotFound, "risk not found", goerr.V("id", id))
			}
			return goerr.Wrap(err, "failed to get risk", goerr.V("id", id))
		}

		risk, err := decodeRisk(snap)
		if err != nil {
			return err
		}
		assessment.Apply(risk)
		risk.UpdatedAt = time.Now().UTC()
		doc := toRiskDocument(risk)

		updated = risk
		return tx.Update(ref, []firestore.Update{
			{Path: "status", Value: doc.Status},
			{Path: "level", Value: doc.Level},
			{Path: "residual_rating", Value: doc.ResidualRating},
			{Path: "planned_completion", Value: doc.PlannedCompletion},
			{Path: "report_to_board", Value: doc.ReportToBoard},
			{Path: "updated_at", Value: doc.UpdatedAt},
		})
	})
	if err != nil {
		return nil, goerr.Wrap(err, "failed to update assessment", goerr.V("id", id))
	}

	return updated, nil
}

func (r *riskRepository) CountOpenByOwners(ctx context.Context, ownerIDs []types.UserID) (map[types.UserID]int, error) {
	counts := make(map[types.UserID]int, len(ownerIDs))
	ids := make([]string, 0, len(ownerIDs))
	for _, id := range ownerIDs {
		if _, ok := counts[id]; ok || id == "" {
			continue
		}
		counts[id] = 0
		ids = append(ids, id.String())
	}

	for start := 0; start < len(ids); start += maxInQueryValues {
		end := min(start+maxInQueryValues, len(ids))

		iter := r.client.Collection(r.risksCollection()).
			Where("owner_id", "in", ids[start:end]).
			Documents(ctx)

		for {
			snap, err := iter.Next()
			if err == iterator.Done {
				break
			}
			if err != nil {
				iter.Stop()
				return nil, goerr.Wrap(err, "failed to iterate owned risks")
			}

			var doc riskDocument
			if err := snap.DataTo(&doc); err != nil {
				iter.Stop()
				return nil, goerr.Wrap(err, "failed to decode risk", goerr.V("doc_id", snap.Ref.ID))
			}
			if types.RiskStatus(doc.Status).IsClosed() {
				continue
			}
			counts[types.UserID(doc.OwnerID)]++
		}
		iter.Stop()
	}

	return counts, nil
}

func decodeRisk(snap *firestore.DocumentSnapshot) (*model.Risk, error) {
	var doc riskDocument
	if err := snap.DataTo(&doc); err != nil {
		return nil, goerr.Wrap(err, "failed to decode risk", goerr.V("doc_id", snap.Ref.ID))
	}
	return doc.toModel(), nil
}
