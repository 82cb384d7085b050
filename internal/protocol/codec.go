package protocol

import (
	"encoding/json"
	"errors"
	"fmt"
)

// maxFrameEcho bounds how much of an offending frame a DecodeError keeps.
const maxFrameEcho = 128

var (
	ErrMalformedFrame   = errors.New("malformed frame")
	ErrMissingType      = errors.New("missing type")
	ErrUnrecognizedType = errors.New("unrecognized type")
)

// DecodeError reports a frame that could not be turned into a message.
// It is never fatal: the frame is discarded and processing continues.
type DecodeError struct {
	Kind  error
	Type  string
	Frame string
	Err   error
}

func (e *DecodeError) Error() string {
	switch {
	case e.Err != nil:
		return fmt.Sprintf("decode frame: %v: %v", e.Kind, e.Err)
	case e.Type != "":
		return fmt.Sprintf("decode frame: %v %q", e.Kind, e.Type)
	default:
		return fmt.Sprintf("decode frame: %v", e.Kind)
	}
}

func (e *DecodeError) Unwrap() []error {
	errs := []error{e.Kind}
	if e.Err != nil {
		errs = append(errs, e.Err)
	}
	return errs
}

func newDecodeError(kind error, frame []byte, msgType string, err error) *DecodeError {
	echo := frame
	if len(echo) > maxFrameEcho {
		echo = echo[:maxFrameEcho]
	}
	return &DecodeError{Kind: kind, Type: msgType, Frame: string(echo), Err: err}
}

// Encode serialises an outbound message into a wire frame.
func Encode(msg Outbound) ([]byte, error) {
	switch msg.Type {
	case TypeSave, TypeJoin, TypeChat:
	default:
		return nil, fmt.Errorf("encode %q: %w", msg.Type, ErrUnrecognizedType)
	}
	data, err := json.Marshal(msg)
	if err != nil {
		return nil, fmt.Errorf("encode %q: %w", msg.Type, err)
	}
	return data, nil
}

type inboundWire struct {
	Type    string   `json:"type"`
	Success bool     `json:"success"`
	Message string   `json:"message"`
	RoomID  string   `json:"roomId"`
	Name    string   `json:"name"`
	Data    Presence `json:"data"`
	Sender  string   `json:"sender"`
	Text    string   `json:"text"`
	Users   Presence `json:"users"`
}

// Decode parses a server frame. Any failure is a *DecodeError.
func Decode(frame []byte) (*Inbound, error) {
	var w inboundWire
	if err := json.Unmarshal(frame, &w); err != nil {
		return nil, newDecodeError(ErrMalformedFrame, frame, "", err)
	}

	switch w.Type {
	case TypeRoomCreated, TypeJoined, TypeChat, TypeGetUsers:
	case "":
		return nil, newDecodeError(ErrMissingType, frame, "", nil)
	default:
		return nil, newDecodeError(ErrUnrecognizedType, frame, w.Type, nil)
	}

	return &Inbound{
		Type:    w.Type,
		Success: w.Success,
		Message: w.Message,
		RoomID:  w.RoomID,
		Name:    w.Name,
		Data:    w.Data,
		Sender:  w.Sender,
		Text:    w.Text,
		Users:   w.Users,
	}, nil
}

type outboundWire struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// DecodeOutbound parses a client frame the way a server reads it. The
// returned Payload holds the concrete payload struct for the type.
func DecodeOutbound(frame []byte) (Outbound, error) {
	var w outboundWire
	if err := json.Unmarshal(frame, &w); err != nil {
		return Outbound{}, newDecodeError(ErrMalformedFrame, frame, "", err)
	}

	var payload any
	var err error
	switch w.Type {
	case TypeSave:
		var p SavePayload
		err = unmarshalPayload(w.Payload, &p)
		payload = p
	case TypeJoin:
		var p JoinPayload
		err = unmarshalPayload(w.Payload, &p)
		payload = p
	case TypeChat:
		var p ChatPayload
		err = unmarshalPayload(w.Payload, &p)
		payload = p
	case "":
		return Outbound{}, newDecodeError(ErrMissingType, frame, "", nil)
	default:
		return Outbound{}, newDecodeError(ErrUnrecognizedType, frame, w.Type, nil)
	}
	if err != nil {
		return Outbound{}, newDecodeError(ErrMalformedFrame, frame, w.Type, err)
	}

	return Outbound{Type: w.Type, Payload: payload}, nil
}

func unmarshalPayload(raw json.RawMessage, v any) error {
	if len(raw) == 0 {
		return errors.New("missing payload")
	}
	return json.Unmarshal(raw, v)
}

type roomCreatedWire struct {
	Type    string `json:"type"`
	Success bool   `json:"success"`
	RoomID  string `json:"roomId"`
	Message string `json:"message"`
}

type joinedWire struct {
	Type    string   `json:"type"`
	Success bool     `json:"success"`
	RoomID  string   `json:"roomId"`
	Name    string   `json:"name"`
	Data    Presence `json:"data"`
	Message string   `json:"message"`
}

type chatWire struct {
	Type   string `json:"type"`
	Sender string `json:"sender"`
	Text   string `json:"text"`
}

type getUsersWire struct {
	Type    string   `json:"type"`
	Users   Presence `json:"users"`
	Message string   `json:"message"`
}

// EncodeInbound serialises a server frame with exactly the fields its
// type defines.
func EncodeInbound(in Inbound) ([]byte, error) {
	var v any
	switch in.Type {
	case TypeRoomCreated:
		v = roomCreatedWire{Type: in.Type, Success: in.Success, RoomID: in.RoomID, Message: in.Message}
	case TypeJoined:
		data := in.Data
		if data == nil {
			data = Presence{}
		}
		v = joinedWire{Type: in.Type, Success: in.Success, RoomID: in.RoomID, Name: in.Name, Data: data, Message: in.Message}
	case TypeChat:
		v = chatWire{Type: in.Type, Sender: in.Sender, Text: in.Text}
	case TypeGetUsers:
		users := in.Users
		if users == nil {
			users = Presence{}
		}
		v = getUsersWire{Type: in.Type, Users: users, Message: in.Message}
	default:
		return nil, fmt.Errorf("encode inbound %q: %w", in.Type, ErrUnrecognizedType)
	}
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encode inbound %q: %w", in.Type, err)
	}
	return data, nil
}
