package iroha

import (
	"fmt"

	"github.com/Ethernal-Tech/iroha-explorer/ds"
)

// RolePermission is a value of iroha.protocol.RolePermission.
type RolePermission int

// GrantablePermission is a value of iroha.protocol.GrantablePermission.
type GrantablePermission int

var rolePermissionNames = []string{
	"can_append_role",
	"can_create_role",
	"can_detach_role",
	"can_add_asset_qty",
	"can_subtract_asset_qty",
	"can_add_peer",
	"can_add_signatory",
	"can_remove_signatory",
	"can_set_quorum",
	"can_create_account",
	"can_set_detail",
	"can_create_asset",
	"can_transfer",
	"can_receive",
	"can_create_domain",
	"can_read_assets",
	"can_get_roles",
	"can_get_my_account",
	"can_get_all_accounts",
	"can_get_domain_accounts",
	"can_get_my_signatories",
	"can_get_all_signatories",
	"can_get_domain_signatories",
	"can_get_my_acc_ast",
	"can_get_all_acc_ast",
	"can_get_domain_acc_ast",
	"can_get_my_acc_detail",
	"can_get_all_acc_detail",
	"can_get_domain_acc_detail",
	"can_get_my_acc_txs",
	"can_get_all_acc_txs",
	"can_get_domain_acc_txs",
	"can_get_my_acc_ast_txs",
	"can_get_all_acc_ast_txs",
	"can_get_domain_acc_ast_txs",
	"can_get_my_txs",
	"can_get_all_txs",
	"can_grant_can_set_my_quorum",
	"can_grant_can_add_my_signatory",
	"can_grant_can_remove_my_signatory",
	"can_grant_can_transfer_my_assets",
	"can_grant_can_set_my_account_detail",
	"can_get_blocks",
	"can_add_domain_asset_qty",
	"can_subtract_domain_asset_qty",
	"can_get_peers",
	"can_remove_peer",
}

var grantablePermissionNames = []string{
	"can_add_my_signatory",
	"can_remove_my_signatory",
	"can_set_my_quorum",
	"can_set_my_account_detail",
	"can_transfer_my_assets",
}

const PermissionCanGetBlocks RolePermission = 42

func (p RolePermission) String() string {
	if p >= 0 && int(p) < len(rolePermissionNames) {
		return rolePermissionNames[p]
	}

	return fmt.Sprintf("role_permission_%d", int(p))
}

func (p GrantablePermission) String() string {
	if p >= 0 && int(p) < len(grantablePermissionNames) {
		return grantablePermissionNames[p]
	}

	return fmt.Sprintf("grantable_permission_%d", int(p))
}

// RolePermissionNames lists the names of the permissions set in perms, in
// ascending permission order.
func RolePermissionNames(perms ds.Bitset) []string {
	names := make([]string, 0, perms.Count())
	for bit := range perms.Bits() {
		names = append(names, RolePermission(bit).String())
	}

	return names
}

// ValidatePermissionTables checks that every permission of the supported
// protocol version fits into a ds.Bitset.
func ValidatePermissionTables() error {
	if n := len(rolePermissionNames); n > ds.BitsetWidth {
		return fmt.Errorf("%d role permissions do not fit into %d bits", n, ds.BitsetWidth)
	}

	if n := len(grantablePermissionNames); n > ds.BitsetWidth {
		return fmt.Errorf("%d grantable permissions do not fit into %d bits", n, ds.BitsetWidth)
	}

	return nil
}
