package cli

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/Individual-1/notifier/internal/bus"
	"github.com/Individual-1/notifier/internal/common"
	"github.com/Individual-1/notifier/internal/models"
)

var (
	errFailed           = errors.New("the background could not complete the request")
	errLocked           = errors.New("vault is locked, run 'unlock' first")
	errMismatch         = errors.New("passphrases do not match")
	errEmpty            = errors.New("empty input")
	errWrongPassphrase  = errors.New("wrong passphrase")
	errUnknownFeedMode  = errors.New("feeds must be comments, submitted or both")
	errResetNotApproved = errors.New("reset cancelled")
)

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}

func (a *App) Status(ctx context.Context) error {
	initialized, ok := a.callBool(ctx, bus.ActionIsInitialized)
	if !ok {
		return errFailed
	}
	unlocked, ok := a.callBool(ctx, bus.ActionIsUnlocked)
	if !ok {
		return errFailed
	}

	clientID, _ := a.call(ctx, bus.ActionGetConfig, bus.TypeString, models.KeyOAuthClientID).(*models.ConfigEntry)
	access, _ := a.call(ctx, bus.ActionGetConfig, bus.TypeString, models.KeyAccessToken).(*models.ConfigEntry)

	fmt.Fprintf(a.out, "passphrase set: %s\n", yesNo(initialized))
	fmt.Fprintf(a.out, "unlocked:       %s\n", yesNo(unlocked))
	fmt.Fprintf(a.out, "client id set:  %s\n", yesNo(clientID != nil && clientID.Text != ""))
	fmt.Fprintf(a.out, "authorized:     %s\n", yesNo(access != nil))
	return nil
}

// Unlock asks for the passphrase; the first unlock sets it and asks twice.
func (a *App) Unlock(ctx context.Context) error {
	initialized, ok := a.callBool(ctx, bus.ActionIsInitialized)
	if !ok {
		return errFailed
	}

	pw, err := GetSecret(a.out, "Passphrase: ")
	if err != nil {
		return err
	}
	defer common.WipeByteArray(pw)
	if len(pw) == 0 {
		return errEmpty
	}

	if !initialized {
		again, err := GetSecret(a.out, "Repeat passphrase: ")
		if err != nil {
			return err
		}
		defer common.WipeByteArray(again)
		if !bytes.Equal(pw, again) {
			return errMismatch
		}
	}

	res := a.call(ctx, bus.ActionUnlockKey, bus.TypeBinary, pw)
	switch res {
	case true:
		fmt.Fprintln(a.out, "Unlocked")
		return nil
	case false:
		return errWrongPassphrase
	default:
		return errFailed
	}
}

func (a *App) Lock(ctx context.Context) error {
	if done, _ := a.callBool(ctx, bus.ActionLockKey); !done {
		return errFailed
	}
	fmt.Fprintln(a.out, "Locked")
	return nil
}

// Reset forgets the passphrase and every encrypted value after confirmation.
func (a *App) Reset(ctx context.Context) error {
	answer, err := GetSimpleText(a.reader, "This deletes the stored client secret and tokens. Type 'yes' to continue", a.out)
	if err != nil {
		return err
	}
	if answer != "yes" {
		return errResetNotApproved
	}
	if done, _ := a.callBool(ctx, bus.ActionResetVault); !done {
		return errFailed
	}
	fmt.Fprintln(a.out, "Vault reset")
	return nil
}

func (a *App) Users(ctx context.Context) error {
	users, ok := a.call(ctx, bus.ActionGetAllUsers, bus.TypeNull, nil).([]models.User)
	if !ok {
		return errFailed
	}
	if len(users) == 0 {
		fmt.Fprintln(a.out, "No tracked users")
		return nil
	}
	for _, u := range users {
		var feeds []string
		if u.Submitted {
			feeds = append(feeds, "submitted")
		}
		if u.Comments {
			feeds = append(feeds, "comments")
		}
		fmt.Fprintf(a.out, "%-24s %-12s %s\n", u.UserName, u.FullName, strings.Join(feeds, ","))
	}
	return nil
}

func (a *App) AddUser(ctx context.Context, name, feeds string) error {
	u := &models.User{UserName: name}
	switch feeds {
	case "both":
		u.Comments, u.Submitted = true, true
	case "comments":
		u.Comments = true
	case "submitted":
		u.Submitted = true
	default:
		return errUnknownFeedMode
	}

	switch a.call(ctx, bus.ActionAddUser, bus.TypeUser, u) {
	case true:
		fmt.Fprintf(a.out, "Tracking %s\n", name)
	case false:
		fmt.Fprintf(a.out, "%s is already tracked or does not exist\n", name)
	default:
		return errFailed
	}
	return nil
}

func (a *App) RemoveUser(ctx context.Context, name string) error {
	switch a.call(ctx, bus.ActionRemoveUser, bus.TypeString, name) {
	case true:
		fmt.Fprintf(a.out, "Stopped tracking %s\n", name)
	case false:
		fmt.Fprintf(a.out, "%s was not tracked\n", name)
	default:
		return errFailed
	}
	return nil
}

func (a *App) Friends(ctx context.Context, on bool) error {
	action := bus.ActionDisableFriends
	if on {
		action = bus.ActionEnableFriends
	}
	changed, ok := a.callBool(ctx, action)
	if !ok {
		return errFailed
	}
	state := "off"
	if on {
		state = "on"
	}
	if changed {
		fmt.Fprintf(a.out, "Friends feed %s\n", state)
	} else {
		fmt.Fprintf(a.out, "Friends feed already %s\n", state)
	}
	return nil
}

func (a *App) ClientID(ctx context.Context, id string) error {
	if a.call(ctx, bus.ActionPutConfig, bus.TypeConfigEntry, models.NewTextEntry(models.KeyOAuthClientID, id)) == nil {
		return errFailed
	}
	fmt.Fprintln(a.out, "Client id saved")
	return nil
}

// ClientSecret reads the secret without echo, has the background encrypt
// it, and stores the ciphertext.
func (a *App) ClientSecret(ctx context.Context) error {
	if unlocked, ok := a.callBool(ctx, bus.ActionIsUnlocked); !ok {
		return errFailed
	} else if !unlocked {
		return errLocked
	}

	secret, err := GetSecret(a.out, "Client secret: ")
	if err != nil {
		return err
	}
	defer common.WipeByteArray(secret)
	if len(secret) == 0 {
		return errEmpty
	}

	ct, ok := a.call(ctx, bus.ActionEncrypt, bus.TypeBinary, secret).([]byte)
	if !ok {
		return errFailed
	}
	if a.call(ctx, bus.ActionPutConfig, bus.TypeConfigEntry, models.NewBytesEntry(models.KeyOAuthClientSecret, ct)) == nil {
		return errFailed
	}
	fmt.Fprintln(a.out, "Client secret saved")
	return nil
}

// Authorize waits for the browser flow without the call timeout; the
// background bounds it on its side.
func (a *App) Authorize(ctx context.Context) error {
	if unlocked, ok := a.callBool(ctx, bus.ActionIsUnlocked); !ok {
		return errFailed
	} else if !unlocked {
		return errLocked
	}

	fmt.Fprintln(a.out, "Complete the authorization in your browser (the URL is also in the background log)...")
	if done, _ := a.bus.Send(ctx, bus.ActionStartAuthorization, bus.TypeNull, nil).(bool); !done {
		return errFailed
	}
	fmt.Fprintln(a.out, "Authorized")
	return nil
}

func (a *App) Backup(ctx context.Context) error {
	if done, _ := a.callBool(ctx, bus.ActionBackupExport); !done {
		return errFailed
	}
	fmt.Fprintln(a.out, "Backup exported")
	return nil
}

func (a *App) Restore(ctx context.Context) error {
	if done, _ := a.callBool(ctx, bus.ActionBackupImport); !done {
		return errFailed
	}
	fmt.Fprintln(a.out, "Backup restored; the vault is locked, run 'unlock'")
	return nil
}
