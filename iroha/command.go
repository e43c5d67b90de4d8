package iroha

import (
	"fmt"

	"github.com/Ethernal-Tech/iroha-explorer/pbscan"
	"google.golang.org/protobuf/encoding/protowire"
)

// CommandKind is the field number of the command inside the iroha.protocol.Command oneof.
type CommandKind protowire.Number

const (
	CommandAddAssetQuantity CommandKind = iota + 1
	CommandAddPeer
	CommandAddSignatory
	CommandAppendRole
	CommandCreateAccount
	CommandCreateAsset
	CommandCreateDomain
	CommandCreateRole
	CommandDetachRole
	CommandGrantPermission
	CommandRemoveSignatory
	CommandRevokePermission
	CommandSetAccountDetail
	CommandSetAccountQuorum
	CommandSubtractAssetQuantity
	CommandTransferAsset
	CommandRemovePeer
	CommandCompareAndSetAccountDetail
	CommandSetSettingValue
	CommandCallEngine
)

func (k CommandKind) String() string {
	if schema, exists := commandSchemas[k]; exists {
		return schema.name
	}

	return fmt.Sprintf("command%d", int(k))
}

// Command is one command of a transaction. Value holds the decoded body for
// the kinds the explorer indexes and is nil for the others.
type Command struct {
	Kind  CommandKind
	Body  pbscan.Range
	Value any
}

type CreateAccount struct {
	AccountName string
	DomainID    string
	PublicKey   string
}

// AccountID returns name@domain.
func (c CreateAccount) AccountID() string {
	return c.AccountName + "@" + c.DomainID
}

type AppendRole struct {
	AccountID string
	RoleName  string
}

type SetAccountQuorum struct {
	AccountID string
	Quorum    uint32
}

type GrantPermission struct {
	AccountID  string
	Permission GrantablePermission
}

type AddPeer struct {
	Address string
	PeerKey string
}

type CreateRole struct {
	RoleName    string
	Permissions []RolePermission
}

type CreateDomain struct {
	DomainID    string
	DefaultRole string
}

func decodeCommand(raw []byte, r pbscan.Range) (cmd Command, err error) {
	err = pbscan.Each(raw, r, func(f pbscan.Field) error {
		cmd.Kind = CommandKind(f.Num)
		cmd.Body = f.Value

		return nil
	})
	if err != nil {
		return cmd, err
	}

	if cmd.Kind == 0 {
		return cmd, fmt.Errorf("%w: empty command", pbscan.ErrMalformed)
	}

	body := cmd.Body

	switch cmd.Kind {
	case CommandCreateAccount:
		var v CreateAccount

		v.AccountName, err = pbscan.String(raw, body, 1)
		if err == nil {
			v.DomainID, err = pbscan.String(raw, body, 2)
		}

		if err == nil {
			v.PublicKey, err = pbscan.String(raw, body, 3)
		}

		cmd.Value = v
	case CommandAppendRole:
		var v AppendRole

		v.AccountID, err = pbscan.String(raw, body, 1)
		if err == nil {
			v.RoleName, err = pbscan.String(raw, body, 2)
		}

		cmd.Value = v
	case CommandSetAccountQuorum:
		var (
			v      SetAccountQuorum
			quorum uint64
		)

		v.AccountID, err = pbscan.String(raw, body, 1)
		if err == nil {
			quorum, err = pbscan.Uint(raw, body, 2)
			v.Quorum = uint32(quorum) //nolint:gosec
		}

		cmd.Value = v
	case CommandGrantPermission:
		var (
			v    GrantPermission
			perm uint64
		)

		v.AccountID, err = pbscan.String(raw, body, 1)
		if err == nil {
			perm, err = pbscan.Uint(raw, body, 2)
			v.Permission = GrantablePermission(perm) //nolint:gosec
		}

		cmd.Value = v
	case CommandAddPeer:
		var v AddPeer

		peer, found, findErr := pbscan.Find(raw, body, 1)
		if err = findErr; err == nil && found {
			v.Address, err = pbscan.String(raw, peer, 1)
			if err == nil {
				v.PeerKey, err = pbscan.String(raw, peer, 2)
			}
		}

		cmd.Value = v
	case CommandCreateRole:
		var v CreateRole

		v.RoleName, err = pbscan.String(raw, body, 1)
		if err == nil {
			err = pbscan.Varints(raw, body, 2, func(p uint64) {
				v.Permissions = append(v.Permissions, RolePermission(p)) //nolint:gosec
			})
		}

		cmd.Value = v
	case CommandCreateDomain:
		var v CreateDomain

		v.DomainID, err = pbscan.String(raw, body, 1)
		if err == nil {
			v.DefaultRole, err = pbscan.String(raw, body, 2)
		}

		cmd.Value = v
	}

	return cmd, err
}
