package zpl

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEncoderHeader(t *testing.T) {
	e := NewEncoder()
	e.StartFormat()
	e.ChangeEncodingUTF8()
	e.PrintWidth(687)
	e.LabelLength(959)
	e.SetMediaMode(MediaTearOff)
	e.LabelHome(0, 0)
	e.EndFormat()

	assert.Equal(t, "^XA\n^CI28\n^PW687\n^LL959\n^MMT\n^LH0,0\n^XZ\n", e.String())
}

func TestEncoderTextField(t *testing.T) {
	e := NewEncoder()
	e.FieldOrigin(80, 80)
	e.ScalableFont(Normal, 24, 24)
	e.FieldBlock(480, 4, 0, JustifyCenter, 0)
	e.FieldData("ABC1")
	e.FieldSeparator()

	assert.Equal(t, "^FO80,80^A0N,24,24^FB480,4,0,C,0^FDABC1^FS\n", e.String())
}

func TestEncoderClampsOrigin(t *testing.T) {
	e := NewEncoder()
	e.FieldOrigin(-5, 12)
	assert.Equal(t, "^FO0,12", e.String())
}

func TestEncoderBarcodeAndQR(t *testing.T) {
	e := NewEncoder()
	e.BarcodeDefaults(3)
	e.Code128(Rotated, 100)
	e.FieldData("123")
	e.FieldSeparator()
	e.QRCode(Normal, 4)
	e.FieldData("QA,hello")
	e.FieldSeparator()

	assert.Equal(t, "^BY3^BCR,100,Y,N,N^FD123^FS\n^BQN,2,4^FDQA,hello^FS\n", e.String())
}

func TestEncoderGraphics(t *testing.T) {
	e := NewEncoder()
	e.GraphicBox(100, 50, 2)
	e.GraphicCircle(40, 3)
	e.GraphicField(4, 2, "FF00FF00")

	assert.Equal(t, "^GB100,50,2,B,0^GC40,3,B^GFA,4,4,2,FF00FF00", e.String())
}

func TestEncoderRFID(t *testing.T) {
	e := NewEncoder()
	e.RFIDSetup(TagGen2)
	e.RFIDWrite(RFIDHex, "0123")
	e.RFIDWrite(RFIDASCII, "SKU-9")

	assert.Equal(t, "^RS8\n^RFW,H^FD0123^FS\n^RFW,A^FDSKU-9^FS\n", e.String())
}

func TestFieldDataEscaping(t *testing.T) {
	e := NewEncoder()
	e.FieldData(`50% ^off~ C:\`)

	assert.Equal(t, `^FH\^FD50% \5Eoff\7E C:\5C`, e.String())
}

func TestOrientationFor(t *testing.T) {
	assert.Equal(t, Normal, OrientationFor(0))
	assert.Equal(t, Rotated, OrientationFor(90))
	assert.Equal(t, Inverted, OrientationFor(180))
	assert.Equal(t, Bottom, OrientationFor(270))
	assert.Equal(t, Normal, OrientationFor(45))
}

func TestEncoderAppendAndReset(t *testing.T) {
	sub := NewEncoder()
	sub.FieldOrigin(1, 2)
	sub.FieldSeparator()

	e := NewEncoder()
	e.StartFormat()
	_, err := e.Write(sub.Bytes())
	assert.NoError(t, err)
	assert.Equal(t, "^XA\n^FO1,2^FS\n", e.String())
	assert.Equal(t, len("^XA\n^FO1,2^FS\n"), e.Len())

	e.Reset()
	assert.Equal(t, 0, e.Len())
}
