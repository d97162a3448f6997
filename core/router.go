package core

import (
	"errors"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
)

// NewRouter constructs the Gin engine with routes wired. The db and redis
// handles are only used by the status endpoint and may be nil in tests.
func NewRouter(
	cfg Config,
	authService AuthService,
	tokens *TokenService,
	expenseRepo ExpenseRepository,
	catalog *CategoryCatalog,
	throttle *LoginThrottle,
	db *pgxpool.Pool,
	redisClient *redis.Client,
) *gin.Engine {
	startedAt := time.Now()
	r := gin.Default()

	r.Use(CORSMiddleware(cfg))

	r.GET("/api/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"ok": true})
	})

	r.GET("/api/status", func(c *gin.Context) {
		c.JSON(http.StatusOK, CollectSystemStatus(c.Request.Context(), db, redisClient, startedAt))
	})

	api := r.Group("/api")
	{
		api.POST("/auth/register", func(c *gin.Context) {
			var req struct {
				Username string `json:"username"`
				Email    string `json:"email"`
				Password string `json:"password"`
			}
			if err := c.ShouldBindJSON(&req); err != nil {
				respondError(c, http.StatusBadRequest, "Missing fields")
				return
			}

			user, err := authService.Register(req.Username, req.Email, req.Password)
			if err != nil {
				switch {
				case errors.Is(err, ErrMissingFields):
					respondError(c, http.StatusBadRequest, "Missing fields")
				case errors.Is(err, ErrEmailTaken):
					respondError(c, http.StatusConflict, "Email already registered")
				default:
					log.Printf("register failed: %v", err)
					respondError(c, http.StatusInternalServerError, "Server error")
				}
				return
			}

			token, err := tokens.Issue(user.ID)
			if err != nil {
				log.Printf("token issue failed for user %d: %v", user.ID, err)
				respondError(c, http.StatusInternalServerError, "Server error")
				return
			}
			c.JSON(http.StatusOK, gin.H{"user": user, "token": token})
		})

		api.POST("/auth/login", func(c *gin.Context) {
			var req struct {
				Email    string `json:"email"`
				Password string `json:"password"`
			}
			if err := c.ShouldBindJSON(&req); err != nil {
				respondError(c, http.StatusBadRequest, "Missing fields")
				return
			}
			if strings.TrimSpace(req.Email) == "" || req.Password == "" {
				respondError(c, http.StatusBadRequest, "Missing fields")
				return
			}

			ip := c.ClientIP()
			// DB を叩く前に失敗回数を確認する。
			if throttle != nil {
				if blocked, retryAfter := throttle.Blocked(c.Request.Context(), req.Email, ip); blocked {
					c.Header("Retry-After", RetryAfterSeconds(retryAfter))
					respondError(c, http.StatusTooManyRequests, "Too many attempts")
					return
				}
			}

			user, err := authService.Authenticate(req.Email, req.Password)
			if err != nil {
				switch {
				case errors.Is(err, ErrMissingFields):
					respondError(c, http.StatusBadRequest, "Missing fields")
				case errors.Is(err, ErrInvalidCredentials):
					if throttle != nil {
						throttle.RecordFailure(c.Request.Context(), req.Email, ip)
					}
					respondError(c, http.StatusUnauthorized, "Invalid credentials")
				default:
					log.Printf("login failed: %v", err)
					respondError(c, http.StatusInternalServerError, "Server error")
				}
				return
			}

			if throttle != nil {
				throttle.Reset(c.Request.Context(), req.Email, ip)
			}

			token, err := tokens.Issue(user.ID)
			if err != nil {
				log.Printf("token issue failed for user %d: %v", user.ID, err)
				respondError(c, http.StatusInternalServerError, "Server error")
				return
			}
			c.JSON(http.StatusOK, gin.H{"user": user, "token": token})
		})

		authorized := api.Group("")
		authorized.Use(RequireAuth(tokens))
		{
			authorized.GET("/categories", func(c *gin.Context) {
				c.JSON(http.StatusOK, gin.H{"categories": catalog.Categories})
			})

			authorized.GET("/expenses", func(c *gin.Context) {
				userID, ok := CurrentUserID(c)
				if !ok {
					respondError(c, http.StatusUnauthorized, "Unauthorized")
					return
				}
				items, err := expenseRepo.ListByUser(c.Request.Context(), userID)
				if err != nil {
					log.Printf("list expenses failed for user %d: %v", userID, err)
					respondError(c, http.StatusInternalServerError, "Server error")
					return
				}
				c.JSON(http.StatusOK, items)
			})

			authorized.POST("/expenses", func(c *gin.Context) {
				userID, ok := CurrentUserID(c)
				if !ok {
					respondError(c, http.StatusUnauthorized, "Unauthorized")
					return
				}
				var req struct {
					Title    string   `json:"title"`
					Category string   `json:"category"`
					Amount   *float64 `json:"amount"`
				}
				if err := c.ShouldBindJSON(&req); err != nil {
					respondError(c, http.StatusBadRequest, "Invalid fields")
					return
				}
				req.Title = strings.TrimSpace(req.Title)
				req.Category = strings.TrimSpace(req.Category)
				if req.Title == "" || req.Category == "" || req.Amount == nil {
					respondError(c, http.StatusBadRequest, "Invalid fields")
					return
				}

				created, err := expenseRepo.Create(c.Request.Context(), userID, req.Title, req.Category, *req.Amount)
				if err != nil {
					log.Printf("create expense failed for user %d: %v", userID, err)
					respondError(c, http.StatusInternalServerError, "Server error")
					return
				}
				c.JSON(http.StatusCreated, created)
			})

			authorized.PUT("/expenses/:id", func(c *gin.Context) {
				userID, ok := CurrentUserID(c)
				if !ok {
					respondError(c, http.StatusUnauthorized, "Unauthorized")
					return
				}
				id, err := strconv.ParseInt(c.Param("id"), 10, 64)
				if err != nil || id <= 0 {
					respondError(c, http.StatusNotFound, "Not found")
					return
				}
				var req struct {
					Title    *string  `json:"title"`
					Category *string  `json:"category"`
					Amount   *float64 `json:"amount"`
				}
				if err := c.ShouldBindJSON(&req); err != nil {
					respondError(c, http.StatusBadRequest, "Invalid fields")
					return
				}

				ctx := c.Request.Context()
				// 部分更新: 未指定は既存を維持
				current, err := expenseRepo.Get(ctx, id, userID)
				if err != nil {
					if errors.Is(err, pgx.ErrNoRows) {
						respondError(c, http.StatusNotFound, "Not found")
						return
					}
					log.Printf("fetch expense %d failed for user %d: %v", id, userID, err)
					respondError(c, http.StatusInternalServerError, "Server error")
					return
				}

				// Absent fields keep current values; explicit values win,
				// empty strings included.
				title := current.Title
				if req.Title != nil {
					title = *req.Title
				}
				category := current.Category
				if req.Category != nil {
					category = *req.Category
				}
				amount := current.Amount
				if req.Amount != nil {
					amount = *req.Amount
				}

				updated, err := expenseRepo.Update(ctx, id, userID, title, category, amount)
				if err != nil {
					if errors.Is(err, pgx.ErrNoRows) {
						respondError(c, http.StatusNotFound, "Not found")
						return
					}
					log.Printf("update expense %d failed for user %d: %v", id, userID, err)
					respondError(c, http.StatusInternalServerError, "Server error")
					return
				}
				c.JSON(http.StatusOK, updated)
			})

			authorized.DELETE("/expenses/:id", func(c *gin.Context) {
				userID, ok := CurrentUserID(c)
				if !ok {
					respondError(c, http.StatusUnauthorized, "Unauthorized")
					return
				}
				id, err := strconv.ParseInt(c.Param("id"), 10, 64)
				if err != nil || id <= 0 {
					respondError(c, http.StatusNotFound, "Not found")
					return
				}
				deleted, err := expenseRepo.Delete(c.Request.Context(), id, userID)
				if err != nil {
					log.Printf("delete expense %d failed for user %d: %v", id, userID, err)
					respondError(c, http.StatusInternalServerError, "Server error")
					return
				}
				if !deleted {
					respondError(c, http.StatusNotFound, "Not found")
					return
				}
				c.Status(http.StatusNoContent)
			})

			authorized.GET("/expenses/summary/by-category", func(c *gin.Context) {
				userID, ok := CurrentUserID(c)
				if !ok {
					respondError(c, http.StatusUnauthorized, "Unauthorized")
					return
				}
				summary, err := expenseRepo.SummaryByCategory(c.Request.Context(), userID)
				if err != nil {
					log.Printf("summary failed for user %d: %v", userID, err)
					respondError(c, http.StatusInternalServerError, "Server error")
					return
				}
				c.JSON(http.StatusOK, summary)
			})
		}
	}

	return r
}
