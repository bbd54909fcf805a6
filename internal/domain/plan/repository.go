package plan

import "context"

type Repository interface {
	Create(ctx context.Context, plan *Plan) error
	Update(ctx context.Context, plan *Plan) error
	GetByID(ctx context.Context, id uint) (*Plan, error)
	GetByCode(ctx context.Context, code string) (*Plan, error)
	ExistsByCode(ctx context.Context, code string) (bool, error)

	// ListActiveVisible returns active, visible plans ordered by sort_order then id.
	ListActiveVisible(ctx context.Context) ([]*Plan, error)
	List(ctx context.Context, filter Filter) ([]*Plan, int64, error)
}

type Filter struct {
	IsActive  *bool
	IsVisible *bool
	Family    string
	Page      int
	PageSize  int
}
