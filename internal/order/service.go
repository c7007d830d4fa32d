package order

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"slices"

	"github.com/gofrs/uuid"
	"github.com/rs/zerolog/log"
	"github.com/vasiliy-maslov/product-management/internal/address"
	"github.com/vasiliy-maslov/product-management/internal/apperr"
	"github.com/vasiliy-maslov/product-management/internal/cart"
	"github.com/vasiliy-maslov/product-management/internal/db"
)

var allowedTransitions = map[OrderStatus]map[OrderStatus]bool{
	StatusPending: {
		StatusConfirmed: true,
		StatusCancelled: true,
	},
	StatusConfirmed: {
		StatusShipped:   true,
		StatusCancelled: true,
	},
	StatusShipped: {
		StatusDelivered: true,
	},
	StatusDelivered: {},
	StatusCancelled: {},
}

// Carts is the part of the cart manager checkout drives.
type Carts interface {
	Validate(ctx context.Context, userID uuid.UUID) error
	GetCart(ctx context.Context, userID uuid.UUID) (*cart.View, error)
	Clear(ctx context.Context, userID uuid.UUID) error
}

// Inventory reserves stock for order lines.
type Inventory interface {
	LockInventory(ctx context.Context, productID uuid.UUID) (int, error)
	DecrementInventory(ctx context.Context, productID uuid.UUID, n int) error
}

type Addresses interface {
	GetOwned(ctx context.Context, addressID, userID uuid.UUID) (*address.Address, error)
}

type Service interface {
	// PlaceOrder turns the user's cart into a CONFIRMED order. Either the
	// order is created, stock is decremented and the cart is cleared, or
	// nothing changes.
	PlaceOrder(ctx context.Context, userID, addressID uuid.UUID) (*Order, error)
	GetOrderByID(ctx context.Context, orderID, userID uuid.UUID) (*Order, error)
	GetUserOrders(ctx context.Context, userID uuid.UUID) ([]Order, error)
	GetAllOrders(ctx context.Context) ([]Order, error)
	UpdateOrderStatus(ctx context.Context, orderID uuid.UUID, newStatus OrderStatus) (*Order, error)
}

type service struct {
	orderRepo Repository
	carts     Carts
	inventory Inventory
	addresses Addresses
	tx        db.Transactor
}

func NewService(orderRepo Repository, carts Carts, inventory Inventory, addresses Addresses, tx db.Transactor) Service {
	return &service{
		orderRepo: orderRepo,
		carts:     carts,
		inventory: inventory,
		addresses: addresses,
		tx:        tx,
	}
}

func (s *service) PlaceOrder(ctx context.Context, userID, addressID uuid.UUID) (*Order, error) {
	var placed *Order

	err := s.tx.RunInTx(ctx, func(ctx context.Context) error {
		// 1. Первичная проверка корзины по живым остаткам
		if err := s.carts.Validate(ctx, userID); err != nil {
			return err
		}

		// 2. Адрес должен принадлежать пользователю
		addr, err := s.addresses.GetOwned(ctx, addressID, userID)
		if err != nil {
			return err
		}

		// 3. Снимок корзины
		view, err := s.carts.GetCart(ctx, userID)
		if err != nil {
			return err
		}
		if len(view.Items) == 0 {
			return apperr.InvalidOperation("Cart is empty")
		}

		o := &Order{
			UserID:      userID,
			AddressID:   addr.ID,
			Address:     addr,
			Status:      StatusConfirmed,
			TotalAmount: view.Total,
			OrderItems:  make([]OrderItem, 0, len(view.Items)),
		}
		if err := s.orderRepo.CreateOrder(ctx, o); err != nil {
			return err
		}

		// 4. Резервирование: блокируем строки остатков в одном порядке,
		// чтобы параллельные оформления не взаимоблокировались
		lines := slices.Clone(view.Items)
		slices.SortFunc(lines, func(a, b cart.Line) int {
			return bytes.Compare(a.ProductID.Bytes(), b.ProductID.Bytes())
		})

		for _, line := range lines {
			available, err := s.inventory.LockInventory(ctx, line.ProductID)
			if err != nil {
				return err
			}
			if available < line.Quantity {
				log.Warn().
					Stringer("user_id", userID).
					Stringer("product_id", line.ProductID).
					Int("available", available).
					Int("requested", line.Quantity).
					Msg("service: stock changed during checkout")
				return apperr.InsufficientInventory(line.ProductName, available, line.Quantity)
			}
			if err := s.inventory.DecrementInventory(ctx, line.ProductID, line.Quantity); err != nil {
				return err
			}

			item := OrderItem{
				OrderID:     o.ID,
				ProductID:   line.ProductID,
				ProductName: line.ProductName,
				Quantity:    line.Quantity,
				Price:       line.Price,
				Subtotal:    line.Subtotal,
			}
			if err := s.orderRepo.AddItem(ctx, &item); err != nil {
				return err
			}
			o.OrderItems = append(o.OrderItems, item)
		}

		// 5. Очистка корзины
		if err := s.carts.Clear(ctx, userID); err != nil {
			return err
		}

		placed = o
		return nil
	})
	if err != nil {
		if apperr.IsBusiness(err) {
			log.Warn().Err(err).Stringer("user_id", userID).Msg("service: checkout rejected")
			return nil, err
		}
		log.Error().Err(err).Stringer("user_id", userID).Msg("service: checkout failed")
		return nil, fmt.Errorf("service: failed to place order: %w", err)
	}

	log.Info().
		Stringer("order_id", placed.ID).
		Stringer("user_id", userID).
		Stringer("total", placed.TotalAmount).
		Int("items", len(placed.OrderItems)).
		Msg("service: order placed")
	return placed, nil
}

func (s *service) GetOrderByID(ctx context.Context, orderID, userID uuid.UUID) (*Order, error) {
	o, err := s.getOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if o.UserID != userID {
		log.Warn().Stringer("order_id", orderID).Stringer("user_id", userID).Msg("service: order belongs to another user")
		return nil, apperr.NotFound("Order not found with id: %s", orderID)
	}
	return o, nil
}

func (s *service) getOrder(ctx context.Context, orderID uuid.UUID) (*Order, error) {
	o, err := s.orderRepo.GetOrderByID(ctx, orderID)
	if err != nil {
		if errors.Is(err, ErrOrderNotFound) {
			log.Warn().Err(err).Stringer("order_id", orderID).Msg("service: order not found by id")
			return nil, apperr.NotFound("Order not found with id: %s", orderID)
		}
		log.Error().Err(err).Stringer("order_id", orderID).Msg("service: failed to fetch order by id in repository")
		return nil, fmt.Errorf("service: failed to fetch order by id: %w", err)
	}
	return o, nil
}

func (s *service) GetUserOrders(ctx context.Context, userID uuid.UUID) ([]Order, error) {
	orders, err := s.orderRepo.GetOrdersByUserID(ctx, userID)
	if err != nil {
		log.Error().Err(err).Stringer("user_id", userID).Msg("service: failed to fetch user orders in repository")
		return nil, fmt.Errorf("service: failed to fetch user orders: %w", err)
	}
	return orders, nil
}

func (s *service) GetAllOrders(ctx context.Context) ([]Order, error) {
	orders, err := s.orderRepo.ListAll(ctx)
	if err != nil {
		log.Error().Err(err).Msg("service: failed to fetch all orders in repository")
		return nil, fmt.Errorf("service: failed to fetch orders: %w", err)
	}
	return orders, nil
}

func (s *service) UpdateOrderStatus(ctx context.Context, orderID uuid.UUID, newStatus OrderStatus) (*Order, error) {
	if !newStatus.Valid() {
		return nil, apperr.InvalidOperation("Unknown order status: %s", newStatus)
	}

	var updated *Order
	err := s.tx.RunInTx(ctx, func(ctx context.Context) error {
		current, err := s.getOrder(ctx, orderID)
		if err != nil {
			return err
		}

		if current.Status == newStatus {
			log.Info().Stringer("order_id", orderID).Stringer("status", newStatus).Msg("service: order status is already the same, no update needed")
			updated = current
			return nil
		}

		if !allowedTransitions[current.Status][newStatus] {
			log.Warn().
				Stringer("order_id", current.ID).
				Stringer("current_status", current.Status).
				Stringer("new_status", newStatus).
				Msg("service: invalid status transition attempt")
			return apperr.InvalidOperation("Cannot change order status from %s to %s", current.Status, newStatus)
		}

		if err := s.orderRepo.UpdateOrderStatus(ctx, orderID, newStatus); err != nil {
			if errors.Is(err, ErrOrderNotFound) {
				return apperr.NotFound("Order not found with id: %s", orderID)
			}
			return err
		}

		log.Info().Stringer("order_id", orderID).Stringer("old_status", current.Status).Stringer("new_status", newStatus).Msg("service: order status updated successfully")
		current.Status = newStatus
		updated = current
		return nil
	})
	if err != nil {
		if apperr.IsBusiness(err) {
			return nil, err
		}
		log.Error().Err(err).Stringer("order_id", orderID).Stringer("new_status", newStatus).Msg("service: failed to update order status in repository")
		return nil, fmt.Errorf("service: failed to update order status: %w", err)
	}
	return updated, nil
}
