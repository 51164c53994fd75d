package controllers

import (
	"errors"
	"net/url"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/ManuelReschke/InstaGrowth/internal/pkg/accounts"
	"github.com/ManuelReschke/InstaGrowth/internal/pkg/usercontext"
)

type AccountController struct {
	store *accounts.Store
	log   *zap.Logger
}

func NewAccountController(store *accounts.Store, log *zap.Logger) *AccountController {
	if log == nil {
		log = zap.NewNop()
	}
	return &AccountController{store: store, log: log.Named("account_controller")}
}

type addAccountRequest struct {
	Handle string `json:"handle"`
}

func (ac *AccountController) HandleListAccounts(c *fiber.Ctx) error {
	userCtx := usercontext.GetUserContext(c)
	if !userCtx.IsLoggedIn {
		return respondError(c, fiber.StatusUnauthorized, ErrCodeUnauthorized, "login required")
	}

	handles, err := ac.store.List(c.UserContext(), userCtx.UserID)
	if err != nil {
		return ac.respondStoreError(c, err)
	}
	return c.JSON(fiber.Map{"accounts": handles})
}

func (ac *AccountController) HandleAddAccount(c *fiber.Ctx) error {
	userCtx := usercontext.GetUserContext(c)
	if !userCtx.IsLoggedIn {
		return respondError(c, fiber.StatusUnauthorized, ErrCodeUnauthorized, "login required")
	}

	var req addAccountRequest
	if err := c.BodyParser(&req); err != nil {
		return respondError(c, fiber.StatusBadRequest, ErrCodeInvalidRequest, "Invalid request body")
	}

	handle, err := ac.store.Add(c.UserContext(), userCtx.UserID, req.Handle)
	if err != nil {
		return ac.respondStoreError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"handle": handle})
}

func (ac *AccountController) HandleRemoveAccount(c *fiber.Ctx) error {
	userCtx := usercontext.GetUserContext(c)
	if !userCtx.IsLoggedIn {
		return respondError(c, fiber.StatusUnauthorized, ErrCodeUnauthorized, "login required")
	}

	raw, err := url.PathUnescape(c.Params("handle"))
	if err != nil {
		return respondError(c, fiber.StatusBadRequest, ErrCodeValidation, "Invalid account handle")
	}

	removed, err := ac.store.Remove(c.UserContext(), userCtx.UserID, raw)
	if err != nil {
		return ac.respondStoreError(c, err)
	}
	return c.JSON(fiber.Map{"removed": removed})
}

func (ac *AccountController) respondStoreError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, accounts.ErrInvalidHandle):
		return respondError(c, fiber.StatusBadRequest, ErrCodeValidation, "Invalid account handle")
	case errors.Is(err, accounts.ErrLimitReached):
		return respondError(c, fiber.StatusConflict, ErrCodeAccountLimit, err.Error())
	case errors.Is(err, accounts.ErrUnavailable):
		return respondError(c, fiber.StatusServiceUnavailable, ErrCodeStoreUnavailable, "Account list unavailable")
	default:
		ac.log.Error("account store failure", zap.Error(err))
		return respondError(c, fiber.StatusInternalServerError, ErrCodeInternal, "Failed to update accounts")
	}
}
