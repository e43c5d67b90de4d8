package iroha

import (
	"fmt"

	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/reflect/protodesc"
	"google.golang.org/protobuf/reflect/protoreflect"
	"google.golang.org/protobuf/types/descriptorpb"
)

const schemaPackage = "iroha.protocol"

type fieldSchema struct {
	name     string
	typ      descriptorpb.FieldDescriptorProto_Type
	typeName string
	repeated bool
}

func str(name string) fieldSchema {
	return fieldSchema{name: name, typ: descriptorpb.FieldDescriptorProto_TYPE_STRING}
}

func typed(name string, typ descriptorpb.FieldDescriptorProto_Type, typeName string) fieldSchema {
	return fieldSchema{name: name, typ: typ, typeName: typeName}
}

type messageSchema struct {
	name   string
	fields []fieldSchema // numbered from 1
}

var (
	uint32Type  = descriptorpb.FieldDescriptorProto_TYPE_UINT32
	boolType    = descriptorpb.FieldDescriptorProto_TYPE_BOOL
	enumType    = descriptorpb.FieldDescriptorProto_TYPE_ENUM
	messageType = descriptorpb.FieldDescriptorProto_TYPE_MESSAGE
)

// commandSchemas describes the bodies of the Command oneof by field number.
var commandSchemas = map[CommandKind]struct {
	name string
	body messageSchema
}{
	CommandAddAssetQuantity: {"add_asset_quantity", messageSchema{"AddAssetQuantity", []fieldSchema{
		str("asset_id"), str("amount"),
	}}},
	CommandAddPeer: {"add_peer", messageSchema{"AddPeer", []fieldSchema{
		typed("peer", messageType, "Peer"),
	}}},
	CommandAddSignatory: {"add_signatory", messageSchema{"AddSignatory", []fieldSchema{
		str("account_id"), str("public_key"),
	}}},
	CommandAppendRole: {"append_role", messageSchema{"AppendRole", []fieldSchema{
		str("account_id"), str("role_name"),
	}}},
	CommandCreateAccount: {"create_account", messageSchema{"CreateAccount", []fieldSchema{
		str("account_name"), str("domain_id"), str("public_key"),
	}}},
	CommandCreateAsset: {"create_asset", messageSchema{"CreateAsset", []fieldSchema{
		str("asset_name"), str("domain_id"), typed("precision", uint32Type, ""),
	}}},
	CommandCreateDomain: {"create_domain", messageSchema{"CreateDomain", []fieldSchema{
		str("domain_id"), str("default_role"),
	}}},
	CommandCreateRole: {"create_role", messageSchema{"CreateRole", []fieldSchema{
		str("role_name"), {name: "permissions", typ: enumType, typeName: "RolePermission", repeated: true},
	}}},
	CommandDetachRole: {"detach_role", messageSchema{"DetachRole", []fieldSchema{
		str("account_id"), str("role_name"),
	}}},
	CommandGrantPermission: {"grant_permission", messageSchema{"GrantPermission", []fieldSchema{
		str("account_id"), typed("permission", enumType, "GrantablePermission"),
	}}},
	CommandRemoveSignatory: {"remove_signatory", messageSchema{"RemoveSignatory", []fieldSchema{
		str("account_id"), str("public_key"),
	}}},
	CommandRevokePermission: {"revoke_permission", messageSchema{"RevokePermission", []fieldSchema{
		str("account_id"), typed("permission", enumType, "GrantablePermission"),
	}}},
	CommandSetAccountDetail: {"set_account_detail", messageSchema{"SetAccountDetail", []fieldSchema{
		str("account_id"), str("key"), str("value"),
	}}},
	CommandSetAccountQuorum: {"set_account_quorum", messageSchema{"SetAccountQuorum", []fieldSchema{
		str("account_id"), typed("quorum", uint32Type, ""),
	}}},
	CommandSubtractAssetQuantity: {"subtract_asset_quantity", messageSchema{"SubtractAssetQuantity", []fieldSchema{
		str("asset_id"), str("amount"),
	}}},
	CommandTransferAsset: {"transfer_asset", messageSchema{"TransferAsset", []fieldSchema{
		str("src_account_id"), str("dest_account_id"), str("asset_id"), str("description"), str("amount"),
	}}},
	CommandRemovePeer: {"remove_peer", messageSchema{"RemovePeer", []fieldSchema{
		str("public_key"),
	}}},
	CommandCompareAndSetAccountDetail: {"compare_and_set_account_detail", messageSchema{"CompareAndSetAccountDetail", []fieldSchema{
		str("account_id"), str("key"), str("value"), str("old_value"), typed("check_empty", boolType, ""),
	}}},
	CommandSetSettingValue: {"set_setting_value", messageSchema{"SetSettingValue", []fieldSchema{
		str("key"), str("value"),
	}}},
	CommandCallEngine: {"call_engine", messageSchema{"CallEngine", []fieldSchema{
		typed("type", enumType, "EngineType"), str("caller"), str("callee"), str("input"),
	}}},
}

var peerSchema = messageSchema{"Peer", []fieldSchema{
	str("address"), str("peer_key"), str("tls_certificate"),
}}

// commandsDescriptor describes a message whose field 1 is the repeated Command,
// the same layout as the command records of a transaction's reduced payload.
var commandsDescriptor = mustBuildSchema()

func qualified(name string) string {
	return "." + schemaPackage + "." + name
}

func (m messageSchema) descriptor() *descriptorpb.DescriptorProto {
	msg := &descriptorpb.DescriptorProto{Name: proto.String(m.name)}

	for i, f := range m.fields {
		msg.Field = append(msg.Field, f.descriptor(int32(i+1))) //nolint:gosec
	}

	return msg
}

func (f fieldSchema) descriptor(num int32) *descriptorpb.FieldDescriptorProto {
	label := descriptorpb.FieldDescriptorProto_LABEL_OPTIONAL
	if f.repeated {
		label = descriptorpb.FieldDescriptorProto_LABEL_REPEATED
	}

	fd := &descriptorpb.FieldDescriptorProto{
		Name:   proto.String(f.name),
		Number: proto.Int32(num),
		Label:  label.Enum(),
		Type:   f.typ.Enum(),
	}

	if f.typeName != "" {
		fd.TypeName = proto.String(qualified(f.typeName))
	}

	return fd
}

func enumDescriptor(name string, values []string) *descriptorpb.EnumDescriptorProto {
	enum := &descriptorpb.EnumDescriptorProto{Name: proto.String(name)}

	for i, v := range values {
		enum.Value = append(enum.Value, &descriptorpb.EnumValueDescriptorProto{
			Name:   proto.String(v),
			Number: proto.Int32(int32(i)), //nolint:gosec
		})
	}

	return enum
}

func buildSchema() (protoreflect.MessageDescriptor, error) {
	command := &descriptorpb.DescriptorProto{
		Name:      proto.String("Command"),
		OneofDecl: []*descriptorpb.OneofDescriptorProto{{Name: proto.String("command")}},
	}

	file := &descriptorpb.FileDescriptorProto{
		Name:    proto.String("iroha/commands.proto"),
		Package: proto.String(schemaPackage),
		Syntax:  proto.String("proto3"),
		EnumType: []*descriptorpb.EnumDescriptorProto{
			enumDescriptor("RolePermission", rolePermissionNames),
			enumDescriptor("GrantablePermission", grantablePermissionNames),
			enumDescriptor("EngineType", []string{"kSolidity"}),
		},
		MessageType: []*descriptorpb.DescriptorProto{peerSchema.descriptor()},
	}

	for kind := CommandAddAssetQuantity; kind <= CommandCallEngine; kind++ {
		schema, ok := commandSchemas[kind]
		if !ok {
			return nil, fmt.Errorf("no schema for command %d", kind)
		}

		file.MessageType = append(file.MessageType, schema.body.descriptor())

		field := typed(schema.name, messageType, schema.body.name).descriptor(int32(kind))
		field.OneofIndex = proto.Int32(0)
		command.Field = append(command.Field, field)
	}

	file.MessageType = append(file.MessageType, command, messageSchema{"Commands", []fieldSchema{
		{name: "commands", typ: messageType, typeName: "Command", repeated: true},
	}}.descriptor())

	fd, err := protodesc.NewFile(file, nil)
	if err != nil {
		return nil, err
	}

	return fd.Messages().ByName("Commands"), nil
}

func mustBuildSchema() protoreflect.MessageDescriptor {
	desc, err := buildSchema()
	if err != nil {
		panic(fmt.Errorf("iroha command schema: %w", err))
	}

	return desc
}
