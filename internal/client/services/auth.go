// Package services contains application services of the gophstore client.
// This file defines the authentication service: login, registration and
// logout, with the session token kept in the local store.
package services

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/dmitrijs2005/gophstore/internal/client/client"
	"github.com/dmitrijs2005/gophstore/internal/client/models"
)

// AuthService defines authentication operations for the CLI.
//
// Contract:
//   - Login: exchange credentials for a bearer token and persist it.
//   - Register: create a new account; returns the backend message.
//   - Logout: forget the stored token.
//   - Username: the user the stored token belongs to, or "".
//   - Close: release underlying client resources.
//
// All methods must honor context cancellation/timeouts.
type AuthService interface {
	Login(ctx context.Context, username string, password []byte) error
	Register(ctx context.Context, username string, password []byte, role models.Role) (string, error)
	Logout(ctx context.Context) error
	Username(ctx context.Context) (string, error)
	Close(ctx context.Context) error
}

// AuthClient is the part of client.Client the service needs.
type AuthClient interface {
	Login(ctx context.Context, username string, password []byte) (*models.Token, error)
	Register(ctx context.Context, reg models.Registration) (*models.Message, error)
	Close() error
}

// SessionStore persists the token together with its user.
type SessionStore interface {
	SaveSession(ctx context.Context, username, token string) error
	ClearToken(ctx context.Context) error
	Username(ctx context.Context) (string, error)
}

type authService struct {
	client AuthClient
	store  SessionStore
}

// NewAuthService constructs an AuthService bound to the given API client and store.
func NewAuthService(client AuthClient, store SessionStore) AuthService {
	return &authService{client: client, store: store}
}

var ErrEmptyCredentials = errors.New("username and password are required")

// Login exchanges the credentials for a token and stores it.
func (a *authService) Login(ctx context.Context, username string, password []byte) error {
	if strings.TrimSpace(username) == "" || len(password) == 0 {
		return ErrEmptyCredentials
	}

	tok, err := a.client.Login(ctx, username, password)
	if err != nil {
		return fmt.Errorf("login error: %w", err)
	}

	if err := a.store.SaveSession(ctx, username, tok.AccessToken); err != nil {
		return fmt.Errorf("token saving error: %w", err)
	}
	return nil
}

// Register creates an account. An empty role lets the backend pick its
// default.
func (a *authService) Register(ctx context.Context, username string, password []byte, role models.Role) (string, error) {
	if strings.TrimSpace(username) == "" || len(password) == 0 {
		return "", ErrEmptyCredentials
	}

	msg, err := a.client.Register(ctx, models.Registration{
		Username: username,
		Password: string(password),
		Role:     role,
	})
	if err != nil {
		return "", err
	}
	if msg.Msg == "" {
		return "Registration successful! Redirecting to login...", nil
	}
	return msg.Msg, nil
}

func (a *authService) Logout(ctx context.Context) error {
	return a.store.ClearToken(ctx)
}

func (a *authService) Username(ctx context.Context) (string, error) {
	return a.store.Username(ctx)
}

// Close releases resources held by the underlying client.
func (a *authService) Close(ctx context.Context) error {
	return a.client.Close()
}

// LoginFailureMessage turns a Login error into what the user is told.
func LoginFailureMessage(err error) string {
	switch {
	case errors.Is(err, ErrEmptyCredentials):
		return "Please enter both username and password."
	case client.IsTimeout(err):
		return "Connection timeout. Please check your internet connection and try again."
	case errors.Is(err, client.ErrUnavailable):
		return "Network error. Please make sure the server is running and try again."
	case client.StatusCode(err) == http.StatusUnauthorized:
		return "Invalid username or password. Please check your credentials."
	case client.StatusCode(err) == http.StatusUnprocessableEntity:
		return "Invalid input. Please check your username and password."
	}
	return client.Detail(err, "Login failed. Please try again.")
}

// RegisterFailureMessage turns a Register error into what the user is told.
func RegisterFailureMessage(err error) string {
	if errors.Is(err, ErrEmptyCredentials) {
		return "Please enter both username and password."
	}
	return client.Detail(err, "Could not register.")
}
