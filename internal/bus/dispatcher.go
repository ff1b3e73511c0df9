package bus

import (
	"context"
	"errors"
	"fmt"

	"github.com/Individual-1/notifier/internal/common"
	"github.com/Individual-1/notifier/internal/logging"
	"github.com/Individual-1/notifier/internal/models"
)

// Vault is the credential vault as seen by the dispatcher.
type Vault interface {
	IsUnlocked() bool
	Unlock(ctx context.Context, passphrase []byte) (bool, error)
	Lock()
	Reset(ctx context.Context) error
	IsInitialized(ctx context.Context) (bool, error)
	Encrypt(data []byte, purpose string) ([]byte, error)
	Decrypt(data []byte, purpose string) ([]byte, error)
}

// ConfigStore reads and writes validated config entries.
type ConfigStore interface {
	Get(ctx context.Context, key string) (*models.ConfigEntry, error)
	Put(ctx context.Context, entry *models.ConfigEntry) (string, error)
}

// Tokens runs the interactive OAuth authorization.
type Tokens interface {
	Authorize(ctx context.Context) error
}

// Users is the tracked-user registry.
type Users interface {
	Load(ctx context.Context) error
	Users() []models.User
	AddUser(ctx context.Context, name string, comments, submitted bool) (bool, error)
	RemoveUser(ctx context.Context, name string) (bool, error)
	EnableFriends(ctx context.Context) (bool, error)
	DisableFriends(ctx context.Context) (bool, error)
}

// Backup mirrors the store to remote storage.
type Backup interface {
	Export(ctx context.Context) error
	Import(ctx context.Context) error
}

// Services is the state the dispatcher routes to. Backup may be nil.
type Services struct {
	Vault  Vault
	Store  ConfigStore
	Tokens Tokens
	Users  Users
	Backup Backup
}

// readOnlyKeys are owned by the background and cannot be written over the bus.
var readOnlyKeys = map[string]bool{
	models.KeySalt:         true,
	models.KeySaltCrypt:    true,
	models.KeyAccessToken:  true,
	models.KeyRefreshToken: true,
}

var errBackupDisabled = errors.New("backup is not configured")

type handler func(ctx context.Context, payload any) (any, error)

// Dispatcher routes decoded envelopes to the background services.
type Dispatcher struct {
	svc      Services
	log      logging.Logger
	handlers map[Action]handler
}

func NewDispatcher(svc Services, log logging.Logger) *Dispatcher {
	d := &Dispatcher{svc: svc, log: log.With("module", "dispatcher")}
	d.handlers = map[Action]handler{
		ActionEncrypt:            d.encrypt,
		ActionDecrypt:            d.decrypt,
		ActionGetConfig:          d.getConfig,
		ActionPutConfig:          d.putConfig,
		ActionUnlockKey:          d.unlockKey,
		ActionIsUnlocked:         d.isUnlocked,
		ActionGetAllUsers:        d.getAllUsers,
		ActionAddUser:            d.addUser,
		ActionRemoveUser:         d.removeUser,
		ActionEnableFriends:      d.enableFriends,
		ActionDisableFriends:     d.disableFriends,
		ActionStartAuthorization: d.startAuthorization,
		ActionLockKey:            d.lockKey,
		ActionResetVault:         d.resetVault,
		ActionIsInitialized:      d.isInitialized,
		ActionBackupExport:       d.backupExport,
		ActionBackupImport:       d.backupImport,
	}
	return d
}

// Dispatch runs the action carried by env. Every failure yields a Null reply.
func (d *Dispatcher) Dispatch(ctx context.Context, env *Envelope) *Reply {
	ctx = context.WithoutCancel(ctx)
	log := d.log.With("request_id", RequestID(ctx))

	payload, err := Decode(env)
	if err != nil {
		log.Warn(ctx, "rejected envelope", "error", err)
		return NullReply()
	}

	h, ok := d.handlers[env.Action]
	if !ok {
		log.Warn(ctx, "no handler", "action", env.Action.String())
		return NullReply()
	}

	result, err := h(ctx, payload)
	if err != nil {
		log.Warn(ctx, "action failed", "action", env.Action.String(), "error", err)
		return NullReply()
	}

	reply, err := EncodeReply(env.Action, result)
	if err != nil {
		log.Error(ctx, "bad result", "action", env.Action.String(), "error", err)
		return NullReply()
	}
	return reply
}

// Bus ciphertext is bound to models.PurposeForeground. Token and saltCrypt
// rows are sealed under their own key, so no ciphertext of theirs, current
// or stale, opens here.
func (d *Dispatcher) encrypt(_ context.Context, payload any) (any, error) {
	return d.svc.Vault.Encrypt(payload.([]byte), models.PurposeForeground)
}

func (d *Dispatcher) decrypt(_ context.Context, payload any) (any, error) {
	return d.svc.Vault.Decrypt(payload.([]byte), models.PurposeForeground)
}

func (d *Dispatcher) getConfig(ctx context.Context, payload any) (any, error) {
	e, err := d.svc.Store.Get(ctx, payload.(string))
	if err != nil || e == nil {
		return nil, err
	}
	return e, nil
}

func (d *Dispatcher) putConfig(ctx context.Context, payload any) (any, error) {
	e := payload.(*models.ConfigEntry)
	if readOnlyKeys[e.Key] {
		return nil, fmt.Errorf("config[%s] is read-only", e.Key)
	}
	return d.svc.Store.Put(ctx, e)
}

func (d *Dispatcher) unlockKey(ctx context.Context, payload any) (any, error) {
	pw := payload.([]byte)
	defer common.WipeByteArray(pw)
	return d.svc.Vault.Unlock(ctx, pw)
}

func (d *Dispatcher) isUnlocked(context.Context, any) (any, error) {
	return d.svc.Vault.IsUnlocked(), nil
}

func (d *Dispatcher) getAllUsers(context.Context, any) (any, error) {
	return d.svc.Users.Users(), nil
}

func (d *Dispatcher) addUser(ctx context.Context, payload any) (any, error) {
	u := payload.(*models.User)
	return d.svc.Users.AddUser(ctx, u.UserName, u.Comments, u.Submitted)
}

func (d *Dispatcher) removeUser(ctx context.Context, payload any) (any, error) {
	return d.svc.Users.RemoveUser(ctx, payload.(string))
}

func (d *Dispatcher) enableFriends(ctx context.Context, _ any) (any, error) {
	return d.svc.Users.EnableFriends(ctx)
}

func (d *Dispatcher) disableFriends(ctx context.Context, _ any) (any, error) {
	return d.svc.Users.DisableFriends(ctx)
}

func (d *Dispatcher) startAuthorization(ctx context.Context, _ any) (any, error) {
	if err := d.svc.Tokens.Authorize(ctx); err != nil {
		return nil, err
	}
	return true, nil
}

func (d *Dispatcher) lockKey(context.Context, any) (any, error) {
	d.svc.Vault.Lock()
	return true, nil
}

func (d *Dispatcher) resetVault(ctx context.Context, _ any) (any, error) {
	if err := d.svc.Vault.Reset(ctx); err != nil {
		return nil, err
	}
	return true, nil
}

func (d *Dispatcher) isInitialized(ctx context.Context, _ any) (any, error) {
	return d.svc.Vault.IsInitialized(ctx)
}

func (d *Dispatcher) backupExport(ctx context.Context, _ any) (any, error) {
	if d.svc.Backup == nil {
		return nil, errBackupDisabled
	}
	if err := d.svc.Backup.Export(ctx); err != nil {
		return nil, err
	}
	return true, nil
}

// backupImport replaces the store, then locks the vault since the restored
// salt may differ, and reloads the registry from the new rows.
func (d *Dispatcher) backupImport(ctx context.Context, _ any) (any, error) {
	if d.svc.Backup == nil {
		return nil, errBackupDisabled
	}
	if err := d.svc.Backup.Import(ctx); err != nil {
		return nil, err
	}
	d.svc.Vault.Lock()
	if err := d.svc.Users.Load(ctx); err != nil {
		return nil, fmt.Errorf("reload registry: %w", err)
	}
	return true, nil
}
