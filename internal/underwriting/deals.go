package underwriting

import (
	"context"
	"math"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/underwriting-cli/internal/model"
	"github.com/sells-group/underwriting-cli/internal/store"
)

// NewDeal is the caller-supplied part of a deal.
type NewDeal struct {
	WorkspaceID string   `json:"workspace_id"`
	Name        string   `json:"name"`
	Address     string   `json:"address,omitempty"`
	AskingPrice *float64 `json:"asking_price,omitempty"`
}

// CreateWorkspace creates a named workspace.
func (s *Service) CreateWorkspace(ctx context.Context, name, createdBy string) (*model.Workspace, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, invalid("workspace name is required")
	}
	ws, err := s.store.CreateWorkspace(ctx, name, createdBy)
	if err != nil {
		return nil, eris.Wrap(err, "underwriting: create workspace")
	}
	logger().Info("workspace created", zap.String("workspace_id", ws.ID), zap.String("name", ws.Name))
	return ws, nil
}

// GetWorkspace returns a workspace by ID.
func (s *Service) GetWorkspace(ctx context.Context, id string) (*model.Workspace, error) {
	return s.store.GetWorkspace(ctx, id)
}

// ListWorkspaces returns every workspace.
func (s *Service) ListWorkspaces(ctx context.Context) ([]model.Workspace, error) {
	return s.store.ListWorkspaces(ctx)
}

// CreateDeal validates and stores a new deal in the NO_RUN gate state.
func (s *Service) CreateDeal(ctx context.Context, in NewDeal, createdBy string) (*model.Deal, error) {
	in.Name = strings.TrimSpace(in.Name)
	if in.Name == "" {
		return nil, invalid("deal name is required")
	}
	if in.WorkspaceID == "" {
		return nil, invalid("workspace_id is required")
	}
	if p := in.AskingPrice; p != nil && (*p < 0 || math.IsNaN(*p) || math.IsInf(*p, 0)) {
		return nil, invalid("asking_price must be a non-negative number")
	}

	d, err := s.store.CreateDeal(ctx, model.Deal{
		WorkspaceID: in.WorkspaceID,
		Name:        in.Name,
		Address:     strings.TrimSpace(in.Address),
		AskingPrice: in.AskingPrice,
		CreatedBy:   createdBy,
	})
	if err != nil {
		return nil, eris.Wrap(err, "underwriting: create deal")
	}
	logger().Info("deal created", zap.String("deal_id", d.ID), zap.String("workspace_id", d.WorkspaceID))
	return d, nil
}

// GetDeal returns a deal by ID.
func (s *Service) GetDeal(ctx context.Context, id string) (*model.Deal, error) {
	return s.store.GetDeal(ctx, id)
}

// ListDeals returns deals matching filter. An unknown workspace is reported
// as not found rather than as an empty list.
func (s *Service) ListDeals(ctx context.Context, filter store.DealFilter) ([]model.Deal, error) {
	if filter.WorkspaceID != "" {
		if _, err := s.store.GetWorkspace(ctx, filter.WorkspaceID); err != nil {
			return nil, err
		}
	}
	return s.store.ListDeals(ctx, filter)
}
