package wire

import (
	"bytes"
	"strings"
	"testing"
)

func TestWriteLineAppendsFraming(t *testing.T) {
	var buf bytes.Buffer
	pkt := CommandPacket{Command: Abort{}}
	if err := WriteLine(&buf, pkt); err != nil {
		t.Fatalf("WriteLine: %v", err)
	}
	if !bytes.HasSuffix(buf.Bytes(), []byte("\r\n")) {
		t.Fatalf("expected trailing CRLF, got %q", buf.String())
	}
	if !strings.Contains(buf.String(), `"Command":"FRC_Abort"`) {
		t.Fatalf("expected discriminator in payload, got %q", buf.String())
	}
}

func TestDecodeInstructionResponse(t *testing.T) {
	line := []byte(`{"Instruction":"FRC_LinearMotion","ErrorID":0,"SequenceID":7}`)
	resp, err := Decode(line)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if resp.Kind != InstructionKind {
		t.Fatalf("expected InstructionKind, got %v", resp.Kind)
	}
	if resp.Name != "FRC_LinearMotion" {
		t.Fatalf("expected FRC_LinearMotion, got %q", resp.Name)
	}
	if resp.SequenceID != 7 {
		t.Fatalf("expected sequence id 7, got %d", resp.SequenceID)
	}
}

func TestDecodeUnknownDiscriminatorDoesNotError(t *testing.T) {
	line := []byte(`{"SomethingNew":"X","ErrorID":0}`)
	resp, err := Decode(line)
	if err != nil {
		t.Fatalf("Decode should tolerate unknown discriminators, got %v", err)
	}
	if resp.Kind != UnknownKind {
		t.Fatalf("expected UnknownKind, got %v", resp.Kind)
	}
}

func TestFrameReaderSplitsOnCRLF(t *testing.T) {
	r := strings.NewReader("{\"Command\":\"FRC_Abort\",\"ErrorID\":0}\r\n{\"Command\":\"FRC_Reset\",\"ErrorID\":0}\r\n")
	fr := NewFrameReader(r)

	first, err := fr.ReadLine()
	if err != nil {
		t.Fatalf("ReadLine: %v", err)
	}
	if !bytes.Contains(first, []byte("FRC_Abort")) {
		t.Fatalf("expected first line to contain FRC_Abort, got %q", first)
	}

	second, err := fr.ReadLine()
	if err != nil {
		t.Fatalf("ReadLine: %v", err)
	}
	if !bytes.Contains(second, []byte("FRC_Reset")) {
		t.Fatalf("expected second line to contain FRC_Reset, got %q", second)
	}
}

func TestEncodeLinearMotionRoundTrip(t *testing.T) {
	pkt := InstructionPacket{Instruction: LinearMotion{
		SequenceID:    3,
		Configuration: DefaultConfiguration(1, 1),
		Position:      Position{X: 100, Y: 200, Z: 300},
		SpeedType:     SpeedMMSec,
		Speed:         250,
		TermType:      TermFine,
	}}
	raw, err := Encode(pkt)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	resp, err := Decode(raw)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if resp.Kind != InstructionKind || resp.Name != "FRC_LinearMotion" {
		t.Fatalf("unexpected decode result: %+v", resp)
	}
	if resp.SequenceID != 3 {
		t.Fatalf("expected sequence id 3, got %d", resp.SequenceID)
	}
}
