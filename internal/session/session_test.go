package session

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bookstore/internal/logger"
	"bookstore/internal/models"
	"bookstore/internal/storeerr"
	"bookstore/internal/testdb"
)

func newTestManager(t *testing.T, cfg Config) *Manager {
	t.Helper()
	db := testdb.Open(t)
	mgr, err := NewManager(db, cfg, logger.NewNop())
	require.NoError(t, err)
	return mgr
}

func TestRunCommitsOnSuccess(t *testing.T) {
	mgr := newTestManager(t, Config{})

	var uow *UnitOfWork
	err := mgr.Run(context.Background(), func(u *UnitOfWork) error {
		uow = u
		assert.Equal(t, StateActive, u.State())
		return u.DB().Create(&models.Category{Name: "fiction"}).Error
	})
	require.NoError(t, err)
	assert.Equal(t, StateCommitted, uow.State())

	var count int64
	require.NoError(t, mgr.DB().Model(&models.Category{}).Count(&count).Error)
	assert.EqualValues(t, 1, count)
}

func TestRunRollsBackOnError(t *testing.T) {
	mgr := newTestManager(t, Config{})

	boom := errors.New("caller abort")
	var uow *UnitOfWork
	err := mgr.Run(context.Background(), func(u *UnitOfWork) error {
		uow = u
		if err := u.DB().Create(&models.Category{Name: "fiction"}).Error; err != nil {
			return err
		}
		return boom
	})
	require.ErrorIs(t, err, boom)
	assert.Equal(t, StateRolledBack, uow.State())

	// Nothing from the aborted unit of work is observable.
	var count int64
	require.NoError(t, mgr.DB().Model(&models.Category{}).Count(&count).Error)
	assert.EqualValues(t, 0, count)
}

func TestRunRollsBackOnConstraintViolation(t *testing.T) {
	mgr := newTestManager(t, Config{})

	err := mgr.Run(context.Background(), func(u *UnitOfWork) error {
		if err := u.DB().Create(&models.Category{Name: "first"}).Error; err != nil {
			return err
		}
		// The invalid row aborts the whole unit of work, including the row above.
		return u.DB().Create(&models.Category{Name: ""}).Error
	})
	cv, ok := storeerr.AsConstraintViolation(err)
	require.True(t, ok)
	assert.Equal(t, storeerr.RangeViolation, cv.Kind)

	var count int64
	require.NoError(t, mgr.DB().Model(&models.Category{}).Count(&count).Error)
	assert.EqualValues(t, 0, count)
}

func TestRunPoolExhaustion(t *testing.T) {
	mgr := newTestManager(t, Config{
		PoolSize:       1,
		MaxOverflow:    0,
		AcquireTimeout: 150 * time.Millisecond,
	})

	entered := make(chan struct{})
	release := make(chan struct{})
	done := make(chan error, 1)

	go func() {
		done <- mgr.Run(context.Background(), func(u *UnitOfWork) error {
			close(entered)
			<-release
			return nil
		})
	}()

	<-entered
	err := mgr.Run(context.Background(), func(u *UnitOfWork) error { return nil })
	require.ErrorIs(t, err, storeerr.ErrResourceExhausted)

	close(release)
	require.NoError(t, <-done)
}

func TestRunUnitOfWorkTimeout(t *testing.T) {
	mgr := newTestManager(t, Config{
		UnitOfWorkTimeout: 100 * time.Millisecond,
	})

	err := mgr.Run(context.Background(), func(u *UnitOfWork) error {
		time.Sleep(250 * time.Millisecond)
		return u.DB().Create(&models.Category{Name: "late"}).Error
	})
	require.ErrorIs(t, err, storeerr.ErrResourceExhausted)

	var count int64
	require.NoError(t, mgr.DB().Model(&models.Category{}).Count(&count).Error)
	assert.EqualValues(t, 0, count)
}

func TestRunCallerCancellation(t *testing.T) {
	mgr := newTestManager(t, Config{})

	ctx, cancel := context.WithCancel(context.Background())
	err := mgr.Run(ctx, func(u *UnitOfWork) error {
		if err := u.DB().Create(&models.Category{Name: "doomed"}).Error; err != nil {
			return err
		}
		cancel()
		return ctx.Err()
	})
	require.ErrorIs(t, err, context.Canceled)

	var count int64
	require.NoError(t, mgr.DB().Model(&models.Category{}).Count(&count).Error)
	assert.EqualValues(t, 0, count)
}

func TestUnitOfWorkIDsAreDistinct(t *testing.T) {
	mgr := newTestManager(t, Config{})

	ids := map[string]bool{}
	for i := 0; i < 3; i++ {
		require.NoError(t, mgr.Run(context.Background(), func(u *UnitOfWork) error {
			ids[u.ID().String()] = true
			return nil
		}))
	}
	assert.Len(t, ids, 3)
}
