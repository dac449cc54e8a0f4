package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/samber/lo"

	"github.com/vovakirdan/toychat/internal/core"
	"github.com/vovakirdan/toychat/internal/proto"
)

var validate = newValidator()

// newValidator reports fields by their json names.
func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// decode unmarshals and validates an inbound payload. Any failure is a
// client error and is reported as bad_request.
func decode(raw json.RawMessage, dst any) *proto.Error {
	if len(raw) == 0 {
		return &proto.Error{Code: core.ErrCodeBadRequest, Msg: "data is required"}
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return &proto.Error{Code: core.ErrCodeBadRequest, Msg: "malformed data"}
	}
	return check(dst)
}

func check(v any) *proto.Error {
	if err := validate.Struct(v); err != nil {
		return &proto.Error{Code: core.ErrCodeBadRequest, Msg: validationMessage(err)}
	}
	return nil
}

func validationMessage(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return "invalid data"
	}
	fe := verrs[0]
	if fe.Tag() == "required" {
		return fmt.Sprintf("%s is required", fe.Field())
	}
	return fmt.Sprintf("%s is invalid", fe.Field())
}

// inboundToCommand maps a wire message to a core command. hello is handled
// by the caller and never reaches this function.
func inboundToCommand(inbound proto.Inbound) (*core.Command, *proto.Error) {
	if proto.IsLegacy(inbound.Type) {
		return legacyToCommand(inbound)
	}

	switch proto.Canonical(inbound.Type) {
	case proto.InboundTypeJoin:
		var join proto.JoinData
		if perr := decode(inbound.Data, &join); perr != nil {
			return nil, perr
		}
		return &core.Command{Kind: core.CommandJoinRoom, Room: join.Room}, nil
	case proto.InboundTypeLeave:
		var leave proto.JoinData
		if perr := decode(inbound.Data, &leave); perr != nil {
			return nil, perr
		}
		return &core.Command{Kind: core.CommandLeaveRoom, Room: leave.Room}, nil
	case proto.InboundTypeMsg:
		var msg proto.MsgData
		if perr := decode(inbound.Data, &msg); perr != nil {
			return nil, perr
		}
		return &core.Command{
			Kind: core.CommandSendRoomMessage,
			Room: msg.Room,
			Message: core.Message{
				// ID and CreatedAt are assigned by the relay
				Room: msg.Room,
				From: msg.SenderIdentity,
				Text: msg.Text,
			},
		}, nil
	case proto.InboundTypeTyping:
		var typing proto.TypingData
		if perr := decode(inbound.Data, &typing); perr != nil {
			return nil, perr
		}
		return &core.Command{
			Kind:     core.CommandTyping,
			Room:     typing.Room,
			Identity: typing.SenderIdentity,
		}, nil
	default:
		return nil, &proto.Error{Code: core.ErrCodeInvalidMessage, Msg: "unknown message type"}
	}
}

// legacyToCommand decodes the browser client's payloads: a bare toy id for
// chat-join and chat-leave, toyId/txt/from style objects otherwise.
func legacyToCommand(inbound proto.Inbound) (*core.Command, *proto.Error) {
	if len(inbound.Data) == 0 {
		return nil, &proto.Error{Code: core.ErrCodeBadRequest, Msg: "data is required"}
	}

	switch inbound.Type {
	case proto.LegacyTypeJoin, proto.LegacyTypeLeave:
		room, perr := legacyRoom(inbound.Data)
		if perr != nil {
			return nil, perr
		}
		kind := core.CommandJoinRoom
		if inbound.Type == proto.LegacyTypeLeave {
			kind = core.CommandLeaveRoom
		}
		return &core.Command{Kind: kind, Room: room}, nil
	case proto.LegacyTypeMsg:
		var legacy proto.LegacyMsgData
		if err := json.Unmarshal(inbound.Data, &legacy); err != nil {
			return nil, &proto.Error{Code: core.ErrCodeBadRequest, Msg: "malformed data"}
		}
		msg := proto.MsgData{
			Room:           lo.CoalesceOrEmpty(legacy.ToyID, legacy.Room),
			Text:           lo.CoalesceOrEmpty(legacy.Txt, legacy.Text),
			SenderIdentity: lo.CoalesceOrEmpty(legacy.From, legacy.Username, legacy.SenderIdentity),
		}
		if perr := check(&msg); perr != nil {
			return nil, perr
		}
		return &core.Command{
			Kind: core.CommandSendRoomMessage,
			Room: msg.Room,
			Message: core.Message{
				Room: msg.Room,
				From: msg.SenderIdentity,
				Text: msg.Text,
			},
		}, nil
	case proto.LegacyTypeTyping:
		var legacy proto.LegacyTypingData
		if err := json.Unmarshal(inbound.Data, &legacy); err != nil {
			return nil, &proto.Error{Code: core.ErrCodeBadRequest, Msg: "malformed data"}
		}
		typing := proto.TypingData{
			Room:           lo.CoalesceOrEmpty(legacy.ToyID, legacy.Room),
			SenderIdentity: lo.CoalesceOrEmpty(legacy.Username, legacy.SenderIdentity),
		}
		if perr := check(&typing); perr != nil {
			return nil, perr
		}
		return &core.Command{Kind: core.CommandTyping, Room: typing.Room, Identity: typing.SenderIdentity}, nil
	default:
		return nil, &proto.Error{Code: core.ErrCodeInvalidMessage, Msg: "unknown message type"}
	}
}

// legacyRoom accepts either a JSON string or a {toyId}/{room} object.
func legacyRoom(raw json.RawMessage) (string, *proto.Error) {
	var join proto.JoinData
	var id string
	if err := json.Unmarshal(raw, &id); err == nil {
		join.Room = id
	} else {
		var obj proto.LegacyRoomData
		if err := json.Unmarshal(raw, &obj); err != nil {
			return "", &proto.Error{Code: core.ErrCodeBadRequest, Msg: "malformed data"}
		}
		join.Room = lo.CoalesceOrEmpty(obj.ToyID, obj.Room)
	}
	if perr := check(&join); perr != nil {
		return "", perr
	}
	return join.Room, nil
}

func toEventMessage(msg core.Message) proto.EventMessage {
	return proto.EventMessage{
		ID:   msg.ID,
		Room: msg.Room,
		User: msg.From,
		Text: msg.Text,
		TS:   msg.CreatedAt.UnixMilli(),
	}
}

// outboundFromEvent maps a core event to the wire. Connections that talk
// the browser client's dialect get chat messages and typing signals under
// its event names and shapes.
func outboundFromEvent(event *core.Event, legacy bool) proto.Outbound {
	if legacy {
		switch event.Kind {
		case core.EventRoomMessage:
			return proto.Outbound{
				Type:  proto.OutboundTypeEvent,
				Event: proto.LegacyTypeMsg,
				Data: proto.LegacyMessage{
					ID:    event.Message.ID,
					ToyID: event.Message.Room,
					From:  event.Message.From,
					Txt:   event.Message.Text,
					TS:    event.Message.CreatedAt.UnixMilli(),
				},
			}
		case core.EventTyping:
			return proto.Outbound{
				Type:  proto.OutboundTypeEvent,
				Event: proto.LegacyTypeTyping,
				Data:  event.User,
			}
		}
	}

	switch event.Kind {
	case core.EventRoomMessage:
		return proto.Outbound{
			Type:  proto.OutboundTypeEvent,
			Event: proto.EventNameMessage,
			Data:  toEventMessage(event.Message),
		}
	case core.EventHistory:
		return proto.Outbound{
			Type:  proto.OutboundTypeEvent,
			Event: proto.EventNameHistory,
			Data: proto.EventHistory{
				Room: event.Room,
				Messages: lo.Map(event.Messages, func(msg core.Message, _ int) proto.EventMessage {
					return toEventMessage(msg)
				}),
			},
		}
	case core.EventTyping:
		return proto.Outbound{
			Type:  proto.OutboundTypeEvent,
			Event: proto.EventNameTyping,
			Data: proto.EventTyping{
				Room: event.Room,
				User: event.User,
			},
		}
	case core.EventError:
		if event.Error == nil {
			return errorOutbound(&proto.Error{Code: "unknown", Msg: "unknown error"})
		}
		return errorOutbound(&proto.Error{Code: event.Error.Code, Msg: event.Error.Message})
	default:
		return proto.Outbound{Type: proto.OutboundTypeEvent}
	}
}

func errorOutbound(perr *proto.Error) proto.Outbound {
	return proto.Outbound{Type: proto.OutboundTypeError, Error: perr}
}
