package postgres

import (
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rootzapp/rootz/internal/apperrors"
	"github.com/rootzapp/rootz/internal/models"
	"github.com/rootzapp/rootz/internal/repository"
	"github.com/rootzapp/rootz/internal/testutil"
)

func Test_UserRepo(t *testing.T) {
	t.Parallel() // It's ok to run in parallel with other tests, but not with subtests

	pg := testutil.StartPostgresContainer(t)
	t.Cleanup(pg.Terminate)

	t.Run("create user ok", func(t *testing.T) {
		testutil.WithTx(pg.Pool, t, func(tx pgx.Tx) {
			r := UserRepo{DB: tx}

			user, err := r.CreateUser(t.Context(), repository.CreateUserParams{
				Name:         "Test User",
				Email:        "testuser@example.com",
				PasswordHash: "hashedpassword123",
			})

			require.NoError(t, err)
			assert.Equal(t, "Test User", user.Name)
			assert.Equal(t, "testuser@example.com", user.Email)
			assert.Equal(t, "hashedpassword123", user.PasswordHash)
			assert.False(t, user.EmailVerified)
			assert.Nil(t, user.ParentID)
			assert.WithinDuration(t, time.Now(), user.CreatedAt, time.Second, "CreatedAt should be recent")
		})
	})

	t.Run("create user normalizes email", func(t *testing.T) {
		testutil.WithTx(pg.Pool, t, func(tx pgx.Tx) {
			r := UserRepo{DB: tx}

			user, err := r.CreateUser(t.Context(), repository.CreateUserParams{
				Name:         "Shouty",
				Email:        "  Shouty@EXAMPLE.Com ",
				PasswordHash: "hashedpassword123",
			})

			require.NoError(t, err)
			assert.Equal(t, "shouty@example.com", user.Email)
		})
	})

	t.Run("create user duplicate email", func(t *testing.T) {
		testutil.WithTx(pg.Pool, t, func(tx pgx.Tx) {
			r := UserRepo{DB: tx}

			_, err := r.CreateUser(t.Context(), repository.CreateUserParams{Name: "First", Email: "taken@example.com", PasswordHash: "hash"})
			require.NoError(t, err)

			_, err = r.CreateUser(t.Context(), repository.CreateUserParams{Name: "Second", Email: "Taken@example.com", PasswordHash: "hash"})

			require.Error(t, err)
			assert.ErrorIs(t, err, apperrors.ErrUserAlreadyExists, "should return well known error")
		})
	})

	t.Run("create user with parent", func(t *testing.T) {
		testutil.WithTx(pg.Pool, t, func(tx pgx.Tx) {
			r := UserRepo{DB: tx}

			parent, err := r.CreateUser(t.Context(), repository.CreateUserParams{Name: "Parent", Email: "parent@example.com", PasswordHash: "hash"})
			require.NoError(t, err)

			child, err := r.CreateUser(t.Context(), repository.CreateUserParams{
				Name:         "Child",
				Email:        "child@example.com",
				PasswordHash: "hash",
				ParentID:     &parent.ID,
			})

			require.NoError(t, err)
			require.NotNil(t, child.ParentID)
			assert.Equal(t, parent.ID, *child.ParentID)
		})
	})

	t.Run("get or create user", func(t *testing.T) {
		testutil.WithTx(pg.Pool, t, func(tx pgx.Tx) {
			r := UserRepo{DB: tx}

			created, err := r.GetOrCreateUser(t.Context(), repository.CreateUserParams{Name: "Once", Email: "once@example.com", PasswordHash: "hash"})
			require.NoError(t, err)

			// Second call must return the same row untouched
			got, err := r.GetOrCreateUser(t.Context(), repository.CreateUserParams{Name: "Other Name", Email: "once@example.com", PasswordHash: "other"})

			require.NoError(t, err)
			assert.Equal(t, created.ID, got.ID)
			assert.Equal(t, "Once", got.Name, "existing row should not be modified")
			assert.Equal(t, "hash", got.PasswordHash)
		})
	})

	t.Run("get user by id ok", func(t *testing.T) {
		testutil.WithTx(pg.Pool, t, func(tx pgx.Tx) {
			r := UserRepo{DB: tx}
			created, err := r.CreateUser(t.Context(), repository.CreateUserParams{Name: "Find", Email: "findbyid@example.com", PasswordHash: "hash"})
			require.NoError(t, err)

			got, err := r.GetUserByID(t.Context(), created.ID)

			require.NoError(t, err)
			assert.Equal(t, created.ID, got.ID)
			assert.Equal(t, created.Email, got.Email)
			assert.Equal(t, created.CreatedAt, got.CreatedAt)
		})
	})

	t.Run("get user by id not found", func(t *testing.T) {
		testutil.WithTx(pg.Pool, t, func(tx pgx.Tx) {
			r := UserRepo{DB: tx}

			_, err := r.GetUserByID(t.Context(), uuid.New())

			assert.Error(t, err, "Should return error for non-existent user")
			assert.ErrorIs(t, err, apperrors.ErrUserNotFound, "should return well known error")
		})
	})

	t.Run("get user by email normalized", func(t *testing.T) {
		testutil.WithTx(pg.Pool, t, func(tx pgx.Tx) {
			r := UserRepo{DB: tx}
			created, err := r.CreateUser(t.Context(), repository.CreateUserParams{Name: "ByEmail", Email: "byemail@example.com", PasswordHash: "hash"})
			require.NoError(t, err)

			got, err := r.GetUserByEmail(t.Context(), " ByEmail@Example.COM ")

			require.NoError(t, err)
			assert.Equal(t, created.ID, got.ID)
		})
	})

	t.Run("get user by email not found", func(t *testing.T) {
		testutil.WithTx(pg.Pool, t, func(tx pgx.Tx) {
			r := UserRepo{DB: tx}

			_, err := r.GetUserByEmail(t.Context(), "nobody@example.com")

			assert.ErrorIs(t, err, apperrors.ErrUserNotFound, "should return well known error")
		})
	})

	t.Run("list children ordered", func(t *testing.T) {
		testutil.WithTx(pg.Pool, t, func(tx pgx.Tx) {
			r := UserRepo{DB: tx}

			parent, err := r.CreateUser(t.Context(), repository.CreateUserParams{Name: "Root", Email: "orderedroot@example.com", PasswordHash: "hash"})
			require.NoError(t, err)

			emails := []string{"first@example.com", "second@example.com", "third@example.com"}
			for _, email := range emails {
				_, err := r.CreateUser(t.Context(), repository.CreateUserParams{Name: email, Email: email, PasswordHash: "hash", ParentID: &parent.ID})
				require.NoError(t, err)
			}

			children, err := r.ListChildren(t.Context(), parent.ID)

			require.NoError(t, err)
			require.Len(t, children, 3)
			for i, child := range children {
				assert.Equal(t, emails[i], child.Email, "children should come back in creation order")
			}
		})
	})

	t.Run("list children empty", func(t *testing.T) {
		testutil.WithTx(pg.Pool, t, func(tx pgx.Tx) {
			r := UserRepo{DB: tx}
			leaf, err := r.CreateUser(t.Context(), repository.CreateUserParams{Name: "Leaf", Email: "leaf@example.com", PasswordHash: "hash"})
			require.NoError(t, err)

			children, err := r.ListChildren(t.Context(), leaf.ID)

			require.NoError(t, err)
			assert.Empty(t, children)
		})
	})

	t.Run("get or create user concurrently", func(t *testing.T) {
		// Runs against the pool directly so creations really race on
		// separate connections
		r := UserRepo{DB: pg.Pool}

		const workers = 20
		var wg sync.WaitGroup
		results := make(chan models.User, workers)
		errs := make(chan error, workers)

		for range workers {
			wg.Add(1)
			go func() {
				defer wg.Done()

				user, err := r.GetOrCreateUser(t.Context(), repository.CreateUserParams{
					Name:         "Racer",
					Email:        "user-racer@example.com",
					PasswordHash: "hash",
				})
				if err != nil {
					errs <- err
					return
				}
				results <- user
			}()
		}
		wg.Wait()
		close(errs)
		close(results)

		for err := range errs {
			require.NoError(t, err, "racing get-or-create should never fail")
		}

		var userID uuid.UUID
		count := 0
		for user := range results {
			count++
			if userID == uuid.Nil {
				userID = user.ID
				continue
			}
			require.Equal(t, userID, user.ID, "every caller should get the same user back")
		}
		require.Equal(t, workers, count)
	})
}
