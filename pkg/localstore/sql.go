package localstore

import (
	"context"
	"errors"
	"time"

	"github.com/angelmondragon/pdv-terminal/pkg/db"
	"github.com/angelmondragon/pdv-terminal/pkg/db/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// SQL stores envelopes in the local_state table (see pkg/migrate).
type SQL struct {
	client    *db.Client
	namespace string
	now       func() time.Time
}

func NewSQL(client *db.Client, namespace string) *SQL {
	return &SQL{client: client, namespace: namespace, now: time.Now}
}

func (s *SQL) Read(ctx context.Context, name string) (Envelope, error) {
	var row models.LocalState
	err := s.client.DB().WithContext(ctx).
		Where("state_key = ?", Key(s.namespace, name)).
		First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return Envelope{}, ErrNotFound
	}
	if err != nil {
		return Envelope{}, err
	}
	return Envelope{Version: row.Version, State: []byte(row.Payload)}, nil
}

func (s *SQL) Write(ctx context.Context, name string, env Envelope) error {
	row := models.LocalState{
		Key:       Key(s.namespace, name),
		Version:   env.Version,
		Payload:   string(env.State),
		UpdatedAt: s.now().UTC(),
	}
	return s.client.WithTx(ctx, func(tx *gorm.DB) error {
		return tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "state_key"}},
			DoUpdates: clause.AssignmentColumns([]string{"version", "payload", "updated_at"}),
		}).Create(&row).Error
	})
}

func (s *SQL) Delete(ctx context.Context, name string) error {
	return s.client.DB().WithContext(ctx).
		Where("state_key = ?", Key(s.namespace, name)).
		Delete(&models.LocalState{}).Error
}

func (s *SQL) Ping(ctx context.Context) error {
	return s.client.Ping(ctx)
}
