package session

import (
	"context"
	"errors"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/Caqil/fedsign/pkg/sharecrypt"
)

// GormStore is the relational Store backed by GORM, intended for
// PostgreSQL. Conditional writes are UPDATE ... WHERE updated_at =
// <expected> statements; RowsAffected == 0 on an existing row means a
// concurrent writer advanced the token first.
type GormStore struct {
	db *gorm.DB
}

// NewGormStore wraps an open GORM connection and migrates the schema.
func NewGormStore(db *gorm.DB) (*GormStore, error) {
	if db == nil {
		return nil, errors.New("nil gorm connection")
	}

	if err := db.AutoMigrate(
		&sessionRecord{},
		&commitmentRecord{},
		&partialSignatureRecord{},
		&encryptedShareRecord{},
	); err != nil {
		return nil, err
	}

	return &GormStore{db: db}, nil
}

// OpenPostgres connects to PostgreSQL and returns a migrated store.
// TranslateError is required: duplicate-key detection depends on it.
func OpenPostgres(dsn string) (*GormStore, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{TranslateError: true})
	if err != nil {
		return nil, err
	}
	return NewGormStore(db)
}

type sessionRecord struct {
	SessionID        string `gorm:"primaryKey;size:64"`
	FederationID     string `gorm:"size:64;index"`
	EventTemplate    []byte
	EventHash        []byte
	Threshold        int
	Status           string `gorm:"size:32;index"`
	FailureReason    string
	CreatedAt        time.Time `gorm:"autoCreateTime:false"`
	SigningStartedAt *time.Time
	UpdatedAt        time.Time `gorm:"autoUpdateTime:false"`
	ExpiresAt        time.Time `gorm:"index"`
	FinalSignature   []byte
	FinalArtifactID  string `gorm:"size:128"`
}

func (sessionRecord) TableName() string { return "signing_sessions" }

type commitmentRecord struct {
	SessionID     string `gorm:"primaryKey;size:64"`
	ParticipantID string `gorm:"primaryKey;size:64"`
	Commitment    []byte
	Used          bool
	CreatedAt     time.Time `gorm:"autoCreateTime:false"`
}

func (commitmentRecord) TableName() string { return "nonce_commitments" }

type partialSignatureRecord struct {
	SessionID     string `gorm:"primaryKey;size:64"`
	ParticipantID string `gorm:"primaryKey;size:64"`
	ShareIndex    int
	NoncePoint    []byte
	Scalar        []byte
	SubmittedAt   time.Time `gorm:"index"`
}

func (partialSignatureRecord) TableName() string { return "partial_signatures" }

type encryptedShareRecord struct {
	FederationID  string `gorm:"primaryKey;size:64"`
	ParticipantID string `gorm:"primaryKey;size:64"`
	ShareIndex    int
	Ciphertext    []byte
	Nonce         []byte
	Salt          []byte
	KDFTime       uint32
	KDFMemory     uint32
	KDFThreads    uint8
	KDFKeyLen     uint32
	CreatedAt     time.Time `gorm:"autoCreateTime:false"`
}

func (encryptedShareRecord) TableName() string { return "encrypted_shares" }

// CreateSession persists a new session.
func (g *GormStore) CreateSession(ctx context.Context, s *SigningSession) error {
	record := toSessionRecord(s)
	err := g.db.WithContext(ctx).Create(record).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return ErrSessionExists
	}
	return err
}

// GetSession loads a session.
func (g *GormStore) GetSession(ctx context.Context, sessionID string) (*SigningSession, error) {
	var record sessionRecord
	err := g.db.WithContext(ctx).First(&record, "session_id = ?", sessionID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrSessionNotFound
	}
	if err != nil {
		return nil, err
	}
	return fromSessionRecord(&record), nil
}

// UpdateSession writes the session conditioned on expectedUpdatedAt.
func (g *GormStore) UpdateSession(ctx context.Context, s *SigningSession, expectedUpdatedAt time.Time) error {
	return g.casSession(g.db.WithContext(ctx), s, expectedUpdatedAt)
}

func (g *GormStore) casSession(tx *gorm.DB, s *SigningSession, expectedUpdatedAt time.Time) error {
	result := tx.Model(&sessionRecord{}).
		Where("session_id = ? AND updated_at = ?", s.SessionID, expectedUpdatedAt).
		Updates(map[string]any{
			"status":             string(s.Status),
			"failure_reason":     s.FailureReason,
			"signing_started_at": s.SigningStartedAt,
			"updated_at":         s.UpdatedAt,
			"final_signature":    s.FinalSignature,
			"final_artifact_id":  s.FinalArtifactID,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return g.missingOrConflict(tx, s.SessionID)
	}
	return nil
}

// bumpSession advances only the optimistic-locking token.
func (g *GormStore) bumpSession(tx *gorm.DB, sessionID string, expectedUpdatedAt, newUpdatedAt time.Time) error {
	result := tx.Model(&sessionRecord{}).
		Where("session_id = ? AND updated_at = ?", sessionID, expectedUpdatedAt).
		Update("updated_at", newUpdatedAt)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return g.missingOrConflict(tx, sessionID)
	}
	return nil
}

func (g *GormStore) missingOrConflict(tx *gorm.DB, sessionID string) error {
	var count int64
	if err := tx.Model(&sessionRecord{}).Where("session_id = ?", sessionID).Count(&count).Error; err != nil {
		return err
	}
	if count == 0 {
		return ErrSessionNotFound
	}
	return ErrRetryableConflict
}

// ListExpired returns non-terminal sessions past their deadline.
func (g *GormStore) ListExpired(ctx context.Context, now time.Time) ([]*SigningSession, error) {
	var records []sessionRecord
	err := g.db.WithContext(ctx).
		Where("expires_at < ? AND status NOT IN ?", now,
			[]string{string(StatusCompleted), string(StatusFailed), string(StatusExpired)}).
		Order("session_id").
		Find(&records).Error
	if err != nil {
		return nil, err
	}

	out := make([]*SigningSession, 0, len(records))
	for i := range records {
		out = append(out, fromSessionRecord(&records[i]))
	}
	return out, nil
}

// SaveCommitment inserts a commitment and bumps the session token in one
// transaction.
func (g *GormStore) SaveCommitment(ctx context.Context, c *NonceCommitment, expectedUpdatedAt, newUpdatedAt time.Time) error {
	return g.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := g.bumpSession(tx, c.SessionID, expectedUpdatedAt, newUpdatedAt); err != nil {
			return err
		}

		err := tx.Create(&commitmentRecord{
			SessionID:     c.SessionID,
			ParticipantID: c.ParticipantID,
			Commitment:    c.Commitment,
			Used:          c.Used,
			CreatedAt:     c.CreatedAt,
		}).Error
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return ErrRetryableConflict
		}
		return err
	})
}

// GetCommitment loads one participant's commitment.
func (g *GormStore) GetCommitment(ctx context.Context, sessionID, participantID string) (*NonceCommitment, error) {
	var record commitmentRecord
	err := g.db.WithContext(ctx).
		First(&record, "session_id = ? AND participant_id = ?", sessionID, participantID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrCommitmentNotFound
	}
	if err != nil {
		return nil, err
	}

	return &NonceCommitment{
		SessionID:     record.SessionID,
		ParticipantID: record.ParticipantID,
		Commitment:    record.Commitment,
		Used:          record.Used,
		CreatedAt:     record.CreatedAt,
	}, nil
}

// ListCommitments returns all commitments for a session.
func (g *GormStore) ListCommitments(ctx context.Context, sessionID string) ([]*NonceCommitment, error) {
	var records []commitmentRecord
	err := g.db.WithContext(ctx).
		Where("session_id = ?", sessionID).
		Order("created_at, participant_id").
		Find(&records).Error
	if err != nil {
		return nil, err
	}

	out := make([]*NonceCommitment, 0, len(records))
	for i := range records {
		r := &records[i]
		out = append(out, &NonceCommitment{
			SessionID:     r.SessionID,
			ParticipantID: r.ParticipantID,
			Commitment:    r.Commitment,
			Used:          r.Used,
			CreatedAt:     r.CreatedAt,
		})
	}
	return out, nil
}

// SavePartialSignature inserts a partial, marks the commitment used, and
// bumps the session token in one transaction.
func (g *GormStore) SavePartialSignature(ctx context.Context, p *PartialSignatureShare, expectedUpdatedAt, newUpdatedAt time.Time) error {
	return g.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := g.bumpSession(tx, p.SessionID, expectedUpdatedAt, newUpdatedAt); err != nil {
			return err
		}

		result := tx.Model(&commitmentRecord{}).
			Where("session_id = ? AND participant_id = ?", p.SessionID, p.ParticipantID).
			Update("used", true)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return ErrCommitmentNotFound
		}

		err := tx.Create(&partialSignatureRecord{
			SessionID:     p.SessionID,
			ParticipantID: p.ParticipantID,
			ShareIndex:    p.ShareIndex,
			NoncePoint:    p.NoncePoint,
			Scalar:        p.Scalar,
			SubmittedAt:   p.SubmittedAt,
		}).Error
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return ErrRetryableConflict
		}
		return err
	})
}

// GetPartialSignature loads one participant's partial signature.
func (g *GormStore) GetPartialSignature(ctx context.Context, sessionID, participantID string) (*PartialSignatureShare, error) {
	var record partialSignatureRecord
	err := g.db.WithContext(ctx).
		First(&record, "session_id = ? AND participant_id = ?", sessionID, participantID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return fromPartialRecord(&record), nil
}

// ListPartialSignatures returns a session's partials in submission order.
func (g *GormStore) ListPartialSignatures(ctx context.Context, sessionID string) ([]*PartialSignatureShare, error) {
	var records []partialSignatureRecord
	err := g.db.WithContext(ctx).
		Where("session_id = ?", sessionID).
		Order("submitted_at, participant_id").
		Find(&records).Error
	if err != nil {
		return nil, err
	}

	out := make([]*PartialSignatureShare, 0, len(records))
	for i := range records {
		out = append(out, fromPartialRecord(&records[i]))
	}
	return out, nil
}

// PutEncryptedShare stores a participant's long-term encrypted share.
func (g *GormStore) PutEncryptedShare(ctx context.Context, share *sharecrypt.EncryptedShare) error {
	err := g.db.WithContext(ctx).Create(&encryptedShareRecord{
		FederationID:  share.FederationID,
		ParticipantID: share.ParticipantID,
		ShareIndex:    share.ShareIndex,
		Ciphertext:    share.Ciphertext,
		Nonce:         share.Nonce,
		Salt:          share.Salt,
		KDFTime:       share.KDF.Time,
		KDFMemory:     share.KDF.Memory,
		KDFThreads:    share.KDF.Threads,
		KDFKeyLen:     share.KDF.KeyLen,
		CreatedAt:     share.CreatedAt,
	}).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return ErrShareExists
	}
	return err
}

// GetEncryptedShare loads a participant's encrypted share.
func (g *GormStore) GetEncryptedShare(ctx context.Context, federationID, participantID string) (*sharecrypt.EncryptedShare, error) {
	var record encryptedShareRecord
	err := g.db.WithContext(ctx).
		First(&record, "federation_id = ? AND participant_id = ?", federationID, participantID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrShareNotFound
	}
	if err != nil {
		return nil, err
	}

	return &sharecrypt.EncryptedShare{
		FederationID:  record.FederationID,
		ParticipantID: record.ParticipantID,
		ShareIndex:    record.ShareIndex,
		Ciphertext:    record.Ciphertext,
		Nonce:         record.Nonce,
		Salt:          record.Salt,
		KDF: sharecrypt.KDFParams{
			Time:    record.KDFTime,
			Memory:  record.KDFMemory,
			Threads: record.KDFThreads,
			KeyLen:  record.KDFKeyLen,
		},
		CreatedAt: record.CreatedAt,
	}, nil
}

func toSessionRecord(s *SigningSession) *sessionRecord {
	return &sessionRecord{
		SessionID:        s.SessionID,
		FederationID:     s.FederationID,
		EventTemplate:    s.EventTemplate,
		EventHash:        s.EventHash,
		Threshold:        s.Threshold,
		Status:           string(s.Status),
		FailureReason:    s.FailureReason,
		CreatedAt:        s.CreatedAt,
		SigningStartedAt: s.SigningStartedAt,
		UpdatedAt:        s.UpdatedAt,
		ExpiresAt:        s.ExpiresAt,
		FinalSignature:   s.FinalSignature,
		FinalArtifactID:  s.FinalArtifactID,
	}
}

func fromSessionRecord(r *sessionRecord) *SigningSession {
	return &SigningSession{
		SessionID:        r.SessionID,
		FederationID:     r.FederationID,
		EventTemplate:    r.EventTemplate,
		EventHash:        r.EventHash,
		Threshold:        r.Threshold,
		Status:           Status(r.Status),
		FailureReason:    r.FailureReason,
		CreatedAt:        r.CreatedAt,
		SigningStartedAt: r.SigningStartedAt,
		UpdatedAt:        r.UpdatedAt,
		ExpiresAt:        r.ExpiresAt,
		FinalSignature:   r.FinalSignature,
		FinalArtifactID:  r.FinalArtifactID,
	}
}

func fromPartialRecord(r *partialSignatureRecord) *PartialSignatureShare {
	return &PartialSignatureShare{
		SessionID:     r.SessionID,
		ParticipantID: r.ParticipantID,
		ShareIndex:    r.ShareIndex,
		NoncePoint:    r.NoncePoint,
		Scalar:        r.Scalar,
		SubmittedAt:   r.SubmittedAt,
	}
}
