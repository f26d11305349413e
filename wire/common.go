package wire

import (
	"io"
	"strings"

	"github.com/lucasbalieiro/cpuminer-stratum-v2/domain/hashes"
	"github.com/lucasbalieiro/cpuminer-stratum-v2/util/binaryserializer"
	"github.com/pkg/errors"
)

// stringTerminator ends every string field on the wire.
const stringTerminator = 0x00

// errNoEncodingForType signifies that there's no encoding for the given type.
var errNoEncodingForType = errors.New("there's no encoding for this type")

// validateString makes sure the given string can be encoded as a
// zero-terminated field.
func validateString(fieldName string, s string) error {
	if strings.IndexByte(s, stringTerminator) != -1 {
		return errors.Wrapf(ErrInvalidFieldContent, "%s contains a zero byte", fieldName)
	}
	return nil
}

// writeString writes the bytes of s followed by a single zero byte. Callers
// must run validateString first.
func writeString(w io.Writer, s string) error {
	_, err := io.WriteString(w, s)
	if err != nil {
		return errors.WithStack(err)
	}
	return binaryserializer.PutUint8(w, stringTerminator)
}

// readString reads bytes up to and excluding the next zero byte.
func readString(r io.Reader) (string, error) {
	var builder strings.Builder
	for {
		b, err := binaryserializer.Uint8(r)
		if err != nil {
			return "", err
		}
		if b == stringTerminator {
			return builder.String(), nil
		}
		builder.WriteByte(b)
	}
}

// writeElement writes the little endian representation of element to w.
func writeElement(w io.Writer, element interface{}) error {
	// Attempt to write the element based on the concrete type via fast
	// type assertions first.
	switch e := element.(type) {
	case uint8:
		return binaryserializer.PutUint8(w, e)

	case uint16:
		return binaryserializer.PutUint16(w, e)

	case uint32:
		return binaryserializer.PutUint32(w, e)

	case Protocol:
		return binaryserializer.PutUint8(w, uint8(e))

	case MessageType:
		return binaryserializer.PutUint8(w, uint8(e))

	case string:
		return writeString(w, e)

	case *hashes.Hash:
		_, err := w.Write(e[:])
		return errors.WithStack(err)
	}

	return errors.Wrapf(errNoEncodingForType, "couldn't find a way to write type %T", element)
}

// writeElements writes multiple items to w. It is equivalent to multiple
// calls to writeElement.
func writeElements(w io.Writer, elements ...interface{}) error {
	for _, element := range elements {
		err := writeElement(w, element)
		if err != nil {
			return err
		}
	}
	return nil
}

// readElement reads the next sequence of bytes from r using little endian
// depending on the concrete type of element pointed to.
func readElement(r io.Reader, element interface{}) error {
	switch e := element.(type) {
	case *uint8:
		rv, err := binaryserializer.Uint8(r)
		if err != nil {
			return err
		}
		*e = rv
		return nil

	case *uint16:
		rv, err := binaryserializer.Uint16(r)
		if err != nil {
			return err
		}
		*e = rv
		return nil

	case *uint32:
		rv, err := binaryserializer.Uint32(r)
		if err != nil {
			return err
		}
		*e = rv
		return nil

	case *Protocol:
		rv, err := binaryserializer.Uint8(r)
		if err != nil {
			return err
		}
		*e = Protocol(rv)
		return nil

	case *MessageType:
		rv, err := binaryserializer.Uint8(r)
		if err != nil {
			return err
		}
		*e = MessageType(rv)
		return nil

	case *string:
		rv, err := readString(r)
		if err != nil {
			return err
		}
		*e = rv
		return nil

	case *hashes.Hash:
		_, err := io.ReadFull(r, e[:])
		return errors.WithStack(err)
	}

	return errors.Wrapf(errNoEncodingForType, "couldn't find a way to read type %T", element)
}

// readElements reads multiple items from r. It is equivalent to multiple
// calls to readElement.
func readElements(r io.Reader, elements ...interface{}) error {
	for _, element := range elements {
		err := readElement(r, element)
		if err != nil {
			return err
		}
	}
	return nil
}
