package service

import (
	"context"
	"fmt"

	"putik-service/internal/models"
	"putik-service/internal/util"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// CartLineView is a cart line with its part and current limit
type CartLineView struct {
	Part       models.Part     `json:"part"`
	Quantity   int             `json:"quantity"`
	MaxAllowed int             `json:"max_allowed"`
	Subtotal   decimal.Decimal `json:"subtotal"`
}

// CartView is the customization state of one user
type CartView struct {
	VehicleID   int64               `json:"vehicle_id,omitempty"`
	EditGroupID *int64              `json:"edit_group_id,omitempty"`
	Step        models.CheckoutStep `json:"step"`
	Lines       []CartLineView      `json:"lines"`
	Total       decimal.Decimal     `json:"total"`
}

// CartService manages the session cart of a user
type CartService struct {
	repo     CatalogRepository
	sessions SessionStore
	catalog  *CatalogService
}

// NewCartService creates a cart service
func NewCartService(repo CatalogRepository, sessions SessionStore, catalog *CatalogService) *CartService {
	return &CartService{
		repo:     repo,
		sessions: sessions,
		catalog:  catalog,
	}
}

// GetCart returns the cart of userID
func (s *CartService) GetCart(ctx context.Context, userID string) (*CartView, error) {
	session, err := s.sessions.GetCheckout(ctx, userID)
	if err != nil {
		return nil, err
	}
	return s.view(ctx, userID, session)
}

// EditGroup returns the group userID is editing, if any
func (s *CartService) EditGroup(ctx context.Context, userID string) (*int64, error) {
	session, err := s.sessions.GetCheckout(ctx, userID)
	if err != nil {
		return nil, err
	}
	return session.EditGroupID, nil
}

// SelectVehicle scopes the cart to vehicleID. Switching vehicle clears the
// lines and leaves edit mode.
func (s *CartService) SelectVehicle(ctx context.Context, userID string, vehicleID int64) (*CartView, error) {
	if _, err := s.repo.GetVehicle(ctx, vehicleID); err != nil {
		return nil, err
	}

	session, err := s.sessions.GetCheckout(ctx, userID)
	if err != nil {
		return nil, err
	}

	if session.VehicleID != vehicleID {
		if err := s.sessions.ClearCart(ctx, userID); err != nil {
			return nil, fmt.Errorf("failed to clear cart: %w", err)
		}
		session.VehicleID = vehicleID
		session.EditGroupID = nil
		session.Reset()
		if err := s.sessions.SaveCheckout(ctx, userID, session); err != nil {
			return nil, fmt.Errorf("failed to save checkout session: %w", err)
		}
		util.LoggerFrom(ctx).Debug("Cart vehicle switched", zap.String("user_id", userID), zap.Int64("vehicle_id", vehicleID))
	}

	return s.view(ctx, userID, session)
}

// AddPart adds one unit of partID. At the limit the cart is returned unchanged.
func (s *CartService) AddPart(ctx context.Context, userID string, partID int64) (*CartView, error) {
	session, part, err := s.scopedPart(ctx, userID, partID)
	if err != nil {
		return nil, err
	}

	max, err := s.maxAllowed(ctx, part, session.EditGroupID)
	if err != nil {
		return nil, err
	}

	if _, err := s.sessions.AddCartItem(ctx, userID, partID, max); err != nil {
		return nil, err
	}
	return s.view(ctx, userID, session)
}

// UpdateQuantity sets the quantity of partID clamped to [0, limit]; 0 removes the line
func (s *CartService) UpdateQuantity(ctx context.Context, userID string, partID int64, qty int) (*CartView, error) {
	session, part, err := s.scopedPart(ctx, userID, partID)
	if err != nil {
		return nil, err
	}

	max, err := s.maxAllowed(ctx, part, session.EditGroupID)
	if err != nil {
		return nil, err
	}

	if _, err := s.sessions.SetCartItem(ctx, userID, partID, qty, max); err != nil {
		return nil, err
	}
	return s.view(ctx, userID, session)
}

// ClearCart empties the cart and drops the checkout session, edit mode included
func (s *CartService) ClearCart(ctx context.Context, userID string) error {
	if err := s.sessions.ClearCart(ctx, userID); err != nil {
		return err
	}
	return s.sessions.DeleteCheckout(ctx, userID)
}

// scopedPart loads partID and checks it fits the selected vehicle. A cart
// without a vehicle adopts the vehicle of its first part.
func (s *CartService) scopedPart(ctx context.Context, userID string, partID int64) (*models.CheckoutSession, *models.Part, error) {
	part, err := s.repo.GetPart(ctx, partID)
	if err != nil {
		return nil, nil, err
	}

	session, err := s.sessions.GetCheckout(ctx, userID)
	if err != nil {
		return nil, nil, err
	}

	switch session.VehicleID {
	case part.VehicleID:
	case 0:
		session.VehicleID = part.VehicleID
		if err := s.sessions.SaveCheckout(ctx, userID, session); err != nil {
			return nil, nil, fmt.Errorf("failed to save checkout session: %w", err)
		}
	default:
		return nil, nil, fmt.Errorf("part %d on vehicle %d: %w", partID, session.VehicleID, ErrVehicleMismatch)
	}

	return session, part, nil
}

func (s *CartService) maxAllowed(ctx context.Context, part *models.Part, editGroupID *int64) (int, error) {
	availability, err := s.catalog.PartAvailability(ctx, []models.Part{*part}, editGroupID)
	if err != nil {
		return 0, err
	}
	return availability[part.ID].Remaining(), nil
}

func (s *CartService) view(ctx context.Context, userID string, session *models.CheckoutSession) (*CartView, error) {
	lines, err := s.sessions.CartItems(ctx, userID)
	if err != nil {
		return nil, err
	}

	out := &CartView{
		VehicleID:   session.VehicleID,
		EditGroupID: session.EditGroupID,
		Step:        session.Step,
		Lines:       []CartLineView{},
		Total:       decimal.Zero,
	}
	if len(lines) == 0 {
		return out, nil
	}

	ids := make([]int64, len(lines))
	for i, l := range lines {
		ids[i] = l.PartID
	}
	parts, err := s.repo.GetPartsByIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("unable to load cart parts: %w", err)
	}
	availability, err := s.catalog.PartAvailability(ctx, parts, session.EditGroupID)
	if err != nil {
		return nil, err
	}

	byID := make(map[int64]models.Part, len(parts))
	for _, p := range parts {
		byID[p.ID] = p
	}

	for _, l := range lines {
		p, ok := byID[l.PartID]
		if !ok {
			// part deleted since it was added
			continue
		}
		subtotal := p.Price.Mul(decimal.NewFromInt(int64(l.Quantity)))
		out.Lines = append(out.Lines, CartLineView{
			Part:       p,
			Quantity:   l.Quantity,
			MaxAllowed: availability[p.ID].Remaining(),
			Subtotal:   subtotal,
		})
		out.Total = out.Total.Add(subtotal)
	}
	return out, nil
}
