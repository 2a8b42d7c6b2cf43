package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"

	"stock_watchlist/internal/feature/auth/domain/entity"
	"stock_watchlist/internal/feature/auth/usecase"
	jwtmw "stock_watchlist/internal/platform/jwt"
)

// mockAuthUsecase はAuthUsecaseのモック実装です。
type mockAuthUsecase struct {
	SignupFunc func(ctx context.Context, email, password string) (*entity.User, error)
	LoginFunc  func(ctx context.Context, email, password string) (string, error)
	MeFunc     func(ctx context.Context, userID uint) (*entity.User, error)
}

func (m *mockAuthUsecase) Signup(ctx context.Context, email, password string) (*entity.User, error) {
	if m.SignupFunc != nil {
		return m.SignupFunc(ctx, email, password)
	}
	return &entity.User{ID: 1, Email: email}, nil
}

func (m *mockAuthUsecase) Login(ctx context.Context, email, password string) (string, error) {
	if m.LoginFunc != nil {
		return m.LoginFunc(ctx, email, password)
	}
	return "", errors.New("login failed")
}

func (m *mockAuthUsecase) Me(ctx context.Context, userID uint) (*entity.User, error) {
	if m.MeFunc != nil {
		return m.MeFunc(ctx, userID)
	}
	return nil, usecase.ErrUserNotFound
}

func doJSON(router *gin.Engine, method, path string, body any) *httptest.ResponseRecorder {
	b, _ := json.Marshal(body)
	req, _ := http.NewRequest(method, path, bytes.NewBuffer(b))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestAuthHandler_Signup(t *testing.T) {
	gin.SetMode(gin.TestMode)

	tests := []struct {
		name           string
		requestBody    gin.H
		mockSignupFunc func(ctx context.Context, email, password string) (*entity.User, error)
		expectedStatus int
		expectedError  string
	}{
		{
			name:           "success: user registration",
			requestBody:    gin.H{"email": "test@example.com", "password": "password123"},
			expectedStatus: http.StatusCreated,
		},
		{
			name:           "failure: invalid email address",
			requestBody:    gin.H{"email": "invalid-email", "password": "password123"},
			expectedStatus: http.StatusBadRequest,
			expectedError:  "Field validation for 'Email' failed on the 'email' tag",
		},
		{
			name:           "failure: short password",
			requestBody:    gin.H{"email": "test@example.com", "password": "short"},
			expectedStatus: http.StatusBadRequest,
			expectedError:  "Field validation for 'Password' failed on the 'min' tag",
		},
		{
			name:        "failure: duplicate email",
			requestBody: gin.H{"email": "existing@example.com", "password": "password123"},
			mockSignupFunc: func(ctx context.Context, email, password string) (*entity.User, error) {
				return nil, usecase.ErrEmailAlreadyExists
			},
			expectedStatus: http.StatusConflict,
			expectedError:  "email already exists",
		},
		{
			name:        "failure: storage error is hidden",
			requestBody: gin.H{"email": "test@example.com", "password": "password123"},
			mockSignupFunc: func(ctx context.Context, email, password string) (*entity.User, error) {
				return nil, errors.New("connection reset")
			},
			expectedStatus: http.StatusInternalServerError,
			expectedError:  "signup failed",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router := gin.New()
			router.POST("/signup", NewAuthHandler(&mockAuthUsecase{SignupFunc: tt.mockSignupFunc}).Signup)

			w := doJSON(router, http.MethodPost, "/signup", tt.requestBody)

			assert.Equal(t, tt.expectedStatus, w.Code)
			var body gin.H
			assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
			if tt.expectedError != "" {
				assert.Contains(t, body["error"], tt.expectedError)
				return
			}
			assert.Equal(t, "test@example.com", body["email"])
			assert.NotContains(t, body, "password")
		})
	}
}

func TestAuthHandler_Login(t *testing.T) {
	gin.SetMode(gin.TestMode)

	tests := []struct {
		name           string
		requestBody    gin.H
		mockLoginFunc  func(ctx context.Context, email, password string) (string, error)
		expectedStatus int
		expectedBody   gin.H
	}{
		{
			name:           "success: user login",
			requestBody:    gin.H{"email": "test@example.com", "password": "password123"},
			mockLoginFunc:  func(ctx context.Context, email, password string) (string, error) { return "dummy-jwt-token", nil },
			expectedStatus: http.StatusOK,
			expectedBody:   gin.H{"token": "dummy-jwt-token"},
		},
		{
			name:           "failure: missing password",
			requestBody:    gin.H{"email": "test@example.com"},
			expectedStatus: http.StatusBadRequest,
			expectedBody:   gin.H{"error": "Field validation for 'Password' failed on the 'required' tag"},
		},
		{
			name:        "failure: invalid credentials",
			requestBody: gin.H{"email": "wrong@example.com", "password": "wrong-password"},
			mockLoginFunc: func(ctx context.Context, email, password string) (string, error) {
				return "", usecase.ErrInvalidCredentials
			},
			expectedStatus: http.StatusUnauthorized,
			expectedBody:   gin.H{"error": "invalid email or password"},
		},
		{
			name:        "failure: internal error message is hidden",
			requestBody: gin.H{"email": "test@example.com", "password": "password123"},
			mockLoginFunc: func(ctx context.Context, email, password string) (string, error) {
				return "", errors.New("failed to generate token: key missing")
			},
			expectedStatus: http.StatusUnauthorized,
			expectedBody:   gin.H{"error": "invalid email or password"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router := gin.New()
			router.POST("/login", NewAuthHandler(&mockAuthUsecase{LoginFunc: tt.mockLoginFunc}).Login)

			w := doJSON(router, http.MethodPost, "/login", tt.requestBody)

			assert.Equal(t, tt.expectedStatus, w.Code)
			var body gin.H
			assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
			if tt.expectedStatus == http.StatusBadRequest {
				assert.Contains(t, body["error"], tt.expectedBody["error"])
			} else {
				assert.Equal(t, tt.expectedBody, body)
			}
		})
	}
}

func TestAuthHandler_Me(t *testing.T) {
	gin.SetMode(gin.TestMode)

	mock := &mockAuthUsecase{
		MeFunc: func(ctx context.Context, userID uint) (*entity.User, error) {
			switch userID {
			case 1:
				return &entity.User{ID: 1, Email: "me@example.com"}, nil
			case 2:
				return nil, errors.New("db down")
			}
			return nil, usecase.ErrUserNotFound
		},
	}

	tests := []struct {
		name           string
		userID         uint
		expectedStatus int
	}{
		{"found", 1, http.StatusOK},
		{"storage error", 2, http.StatusInternalServerError},
		{"deleted user", 3, http.StatusNotFound},
		{"no user in context", 0, http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router := gin.New()
			router.GET("/me", func(c *gin.Context) {
				if tt.userID != 0 {
					c.Set(jwtmw.ContextUserID, tt.userID)
				}
				c.Next()
			}, NewAuthHandler(mock).Me)

			w := httptest.NewRecorder()
			router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/me", nil))

			assert.Equal(t, tt.expectedStatus, w.Code)
			if tt.expectedStatus == http.StatusOK {
				assert.Contains(t, w.Body.String(), "me@example.com")
			}
		})
	}
}
