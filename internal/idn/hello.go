// Package idn encodes and decodes the ILDA Digital Network wire protocol:
// the Hello control layer (4-byte header plus command-specific payloads) and
// the Stream channel payloads that carry laser frames inside realtime
// channel messages. Both layers travel over UDP on the same port.
package idn

import (
	"encoding/binary"
	"fmt"
	"strings"
)

// DefaultPort is the UDP port for both control and data traffic.
const DefaultPort = 7255

// Hello command codes (header byte 0).
const (
	CmdVoid               = 0x00
	CmdPingRequest        = 0x08
	CmdPingResponse       = 0x09
	CmdGroupRequest       = 0x0C
	CmdGroupResponse      = 0x0D
	CmdScanRequest        = 0x10
	CmdScanResponse       = 0x11
	CmdServiceMapRequest  = 0x12
	CmdServiceMapResponse = 0x13
	CmdMessage            = 0x40 // realtime channel message
	CmdMessageAck         = 0x41 // realtime channel message, acknowledgement requested
	CmdClose              = 0x44 // realtime channel close
	CmdCloseAck           = 0x45 // realtime channel close, acknowledgement requested
	CmdAbort              = 0x46 // realtime abort
	CmdAcknowledge        = 0x47 // realtime acknowledgement
)

// Unit status flags reported in a scan response.
const (
	StatusMalfunction = 0x80
	StatusOffline     = 0x40
	StatusExcluded    = 0x20
	StatusOccupied    = 0x02
	StatusRealtime    = 0x01
)

// HeaderSize is the length of the Hello packet header in bytes.
const HeaderSize = 4

const (
	unitIDSize   = 16
	hostNameSize = 20
)

// Header is the Hello packet header: command, client group (low nibble of
// the flags byte), and a 16-bit big-endian sequence number.
type Header struct {
	Command     byte
	ClientGroup byte // 0-15
	Sequence    uint16
}

// AppendHeader appends the encoded header to buf and returns the extended slice.
func AppendHeader(buf []byte, h Header) []byte {
	buf = append(buf, h.Command, h.ClientGroup&0x0F)
	return binary.BigEndian.AppendUint16(buf, h.Sequence)
}

// EncodeHeader returns the 4-byte encoding of h.
func EncodeHeader(h Header) []byte {
	return AppendHeader(make([]byte, 0, HeaderSize), h)
}

// DecodeHeader parses a Hello header from the start of data.
func DecodeHeader(data []byte) (Header, error) {
	if len(data) < HeaderSize {
		return Header{}, fmt.Errorf("idn: header too short: %d bytes", len(data))
	}
	return Header{
		Command:     data[0],
		ClientGroup: data[1] & 0x0F,
		Sequence:    binary.BigEndian.Uint16(data[2:4]),
	}, nil
}

// Packet returns a full Hello packet: header followed by payload.
func Packet(h Header, payload []byte) []byte {
	buf := AppendHeader(make([]byte, 0, HeaderSize+len(payload)), h)
	return append(buf, payload...)
}

// PingRequest returns a ping request packet.
func PingRequest(clientGroup byte, seq uint16) []byte {
	return EncodeHeader(Header{Command: CmdPingRequest, ClientGroup: clientGroup, Sequence: seq})
}

// ScanRequest returns a scan request packet used for unit discovery.
func ScanRequest(clientGroup byte, seq uint16) []byte {
	return EncodeHeader(Header{Command: CmdScanRequest, ClientGroup: clientGroup, Sequence: seq})
}

// ScanResponse is the payload a unit returns for a scan request.
type ScanResponse struct {
	ProtocolMajor byte // high nibble on the wire
	ProtocolMinor byte // low nibble on the wire
	Status        byte
	UnitID        [unitIDSize]byte
	HostName      string // at most 20 bytes, zero padded on the wire
}

const scanResponseSize = 4 + unitIDSize + hostNameSize

// AppendScanResponse appends the encoded scan response payload to buf.
func AppendScanResponse(buf []byte, r ScanResponse) []byte {
	buf = append(buf,
		scanResponseSize,
		(r.ProtocolMajor&0x0F)<<4|r.ProtocolMinor&0x0F,
		r.Status,
		0,
	)
	buf = append(buf, r.UnitID[:]...)
	var name [hostNameSize]byte
	copy(name[:], r.HostName)
	return append(buf, name[:]...)
}

// DecodeScanResponse parses a scan response payload. The host name is
// returned with trailing padding trimmed.
func DecodeScanResponse(data []byte) (ScanResponse, error) {
	if len(data) < scanResponseSize {
		return ScanResponse{}, fmt.Errorf("idn: scan response too short: %d bytes", len(data))
	}
	if int(data[0]) < scanResponseSize {
		return ScanResponse{}, fmt.Errorf("idn: scan response struct size %d invalid", data[0])
	}
	r := ScanResponse{
		ProtocolMajor: data[1] >> 4,
		ProtocolMinor: data[1] & 0x0F,
		Status:        data[2],
	}
	copy(r.UnitID[:], data[4:4+unitIDSize])
	r.HostName = strings.TrimRight(string(data[4+unitIDSize:scanResponseSize]), "\x00")
	return r, nil
}
