package bus

// Action names a background operation.
type Action int

const (
	ActionEncrypt Action = iota
	ActionDecrypt
	ActionGetConfig
	ActionPutConfig
	ActionUnlockKey
	ActionIsUnlocked
	ActionGetAllUsers
	ActionAddUser
	ActionRemoveUser
	ActionEnableFriends
	ActionDisableFriends
	ActionStartAuthorization
	ActionLockKey
	ActionResetVault
	ActionIsInitialized
	ActionBackupExport
	ActionBackupImport
)

// DataType tags the variant carried in an envelope or reply.
type DataType int

const (
	TypeNull DataType = iota
	TypeBinary
	TypeString
	TypeBool
	TypeConfigEntry
	TypeUser
	TypeUserList
)

var actionNames = map[Action]string{
	ActionEncrypt:            "Encrypt",
	ActionDecrypt:            "Decrypt",
	ActionGetConfig:          "GetConfig",
	ActionPutConfig:          "PutConfig",
	ActionUnlockKey:          "UnlockKey",
	ActionIsUnlocked:         "IsUnlocked",
	ActionGetAllUsers:        "GetAllUsers",
	ActionAddUser:            "AddUser",
	ActionRemoveUser:         "RemoveUser",
	ActionEnableFriends:      "EnableFriends",
	ActionDisableFriends:     "DisableFriends",
	ActionStartAuthorization: "StartAuthorization",
	ActionLockKey:            "LockKey",
	ActionResetVault:         "ResetVault",
	ActionIsInitialized:      "IsInitialized",
	ActionBackupExport:       "BackupExport",
	ActionBackupImport:       "BackupImport",
}

func (a Action) String() string {
	if n, ok := actionNames[a]; ok {
		return n
	}
	return "Unknown"
}

func (t DataType) String() string {
	switch t {
	case TypeNull:
		return "Null"
	case TypeBinary:
		return "Binary"
	case TypeString:
		return "String"
	case TypeBool:
		return "Bool"
	case TypeConfigEntry:
		return "ConfigEntry"
	case TypeUser:
		return "User"
	case TypeUserList:
		return "UserList"
	default:
		return "Unknown"
	}
}

type signature struct {
	payload DataType
	result  DataType
}

// signatures is the single source of truth for which payload and result
// type every action carries.
var signatures = map[Action]signature{
	ActionEncrypt:            {TypeBinary, TypeBinary},
	ActionDecrypt:            {TypeBinary, TypeBinary},
	ActionGetConfig:          {TypeString, TypeConfigEntry},
	ActionPutConfig:          {TypeConfigEntry, TypeString},
	ActionUnlockKey:          {TypeBinary, TypeBool},
	ActionIsUnlocked:         {TypeNull, TypeBool},
	ActionGetAllUsers:        {TypeNull, TypeUserList},
	ActionAddUser:            {TypeUser, TypeBool},
	ActionRemoveUser:         {TypeString, TypeBool},
	ActionEnableFriends:      {TypeNull, TypeBool},
	ActionDisableFriends:     {TypeNull, TypeBool},
	ActionStartAuthorization: {TypeNull, TypeBool},
	ActionLockKey:            {TypeNull, TypeBool},
	ActionResetVault:         {TypeNull, TypeBool},
	ActionIsInitialized:      {TypeNull, TypeBool},
	ActionBackupExport:       {TypeNull, TypeBool},
	ActionBackupImport:       {TypeNull, TypeBool},
}

// PayloadType returns the only payload type valid for a.
func PayloadType(a Action) (DataType, bool) {
	s, ok := signatures[a]
	return s.payload, ok
}

// ResultType returns the only result type valid for a.
func ResultType(a Action) (DataType, bool) {
	s, ok := signatures[a]
	return s.result, ok
}

// Actions lists every known action in declaration order.
func Actions() []Action {
	out := make([]Action, 0, len(signatures))
	for a := ActionEncrypt; a <= ActionBackupImport; a++ {
		out = append(out, a)
	}
	return out
}
