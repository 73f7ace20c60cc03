package variant

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/shredpack/variant/decimal"
	"github.com/shredpack/variant/format"
	"github.com/shredpack/variant/jsonvalue"
)

// ToJSON renders v as a JSON document. zone, if non-nil, is used to render
// TIMESTAMP values (which are stored as UTC microseconds); it defaults to
// UTC. TIMESTAMP_NTZ values are always rendered without a zone suffix.
func (v Variant) ToJSON(zone *time.Location) (string, error) {
	var sb strings.Builder
	if err := v.writeJSON(&sb, zone); err != nil {
		return "", err
	}
	return sb.String(), nil
}

func (v Variant) writeJSON(sb *strings.Builder, zone *time.Location) error {
	typ, err := v.Type()
	if err != nil {
		return err
	}

	switch typ {
	case format.TypeObject:
		return v.writeObjectJSON(sb, zone)
	case format.TypeArray:
		return v.writeArrayJSON(sb, zone)
	case format.TypeNull:
		sb.WriteString("null")
		return nil
	case format.TypeBoolean:
		b, err := v.GetBoolean()
		if err != nil {
			return err
		}
		sb.WriteString(strconv.FormatBool(b))
		return nil
	case format.TypeLong:
		l, err := v.GetLong()
		if err != nil {
			return err
		}
		sb.WriteString(strconv.FormatInt(l, 10))
		return nil
	case format.TypeString:
		s, err := v.GetString()
		if err != nil {
			return err
		}
		return writeJSONString(sb, s)
	case format.TypeDouble:
		d, err := v.GetDouble()
		if err != nil {
			return err
		}
		sb.WriteString(strconv.FormatFloat(d, 'g', -1, 64))
		return nil
	case format.TypeDecimal:
		d, err := v.GetDecimal()
		if err != nil {
			return err
		}
		sb.WriteString(d.String())
		return nil
	case format.TypeDate:
		days, err := v.GetLong()
		if err != nil {
			return err
		}
		date := time.Unix(0, 0).UTC().AddDate(0, 0, int(days))
		fmt.Fprintf(sb, "%q", date.Format("2006-01-02"))
		return nil
	case format.TypeTimestamp:
		micros, err := v.GetLong()
		if err != nil {
			return err
		}
		loc := zone
		if loc == nil {
			loc = time.UTC
		}
		sb.WriteByte('"')
		sb.WriteString(formatTimestamp(micros, loc, true))
		sb.WriteByte('"')
		return nil
	case format.TypeTimestampNTZ:
		micros, err := v.GetLong()
		if err != nil {
			return err
		}
		sb.WriteByte('"')
		sb.WriteString(formatTimestamp(micros, time.UTC, false))
		sb.WriteByte('"')
		return nil
	case format.TypeFloat:
		f, err := v.GetFloat()
		if err != nil {
			return err
		}
		sb.WriteString(strconv.FormatFloat(float64(f), 'g', -1, 32))
		return nil
	case format.TypeBinary:
		data, err := v.GetBinary()
		if err != nil {
			return err
		}
		fmt.Fprintf(sb, "%q", base64.StdEncoding.EncodeToString(data))
		return nil
	case format.TypeUUID:
		id, err := v.GetUUID()
		if err != nil {
			return err
		}
		fmt.Fprintf(sb, "%q", id.String())
		return nil
	default:
		return fmt.Errorf("variant: unhandled type %s in ToJSON", typ)
	}
}

func formatTimestamp(micros int64, loc *time.Location, withZone bool) string {
	t := time.UnixMicro(micros).In(loc)
	base := t.Format("2006-01-02 15:04:05")
	millis := t.Nanosecond() / 1_000_000
	if !withZone {
		return fmt.Sprintf("%s.%03d", base, millis)
	}
	return fmt.Sprintf("%s.%03d%s", base, millis, t.Format("-0700"))
}

func writeJSONString(sb *strings.Builder, s string) error {
	encoded, err := json.Marshal(s)
	if err != nil {
		return err
	}
	sb.Write(encoded)
	return nil
}

func (v Variant) writeObjectJSON(sb *strings.Builder, zone *time.Location) error {
	size, err := v.ObjectSize()
	if err != nil {
		return err
	}
	sb.WriteByte('{')
	for i := 0; i < size; i++ {
		field, ok, err := v.GetFieldAtIndex(i)
		if err != nil {
			return err
		}
		if !ok {
			continue
		}
		if i != 0 {
			sb.WriteByte(',')
		}
		if err := writeJSONString(sb, field.Key); err != nil {
			return err
		}
		sb.WriteByte(':')
		if err := field.Value.writeJSON(sb, zone); err != nil {
			return err
		}
	}
	sb.WriteByte('}')
	return nil
}

func (v Variant) writeArrayJSON(sb *strings.Builder, zone *time.Location) error {
	size, err := v.ArraySize()
	if err != nil {
		return err
	}
	sb.WriteByte('[')
	for i := 0; i < size; i++ {
		elem, err := v.GetElementAtIndex(i)
		if err != nil {
			return err
		}
		if i != 0 {
			sb.WriteByte(',')
		}
		if err := elem.writeJSON(sb, zone); err != nil {
			return err
		}
	}
	sb.WriteByte(']')
	return nil
}

// BuildFromJSON walks a pre-parsed JSON value tree, appending the
// equivalent Variant structure into b. It is the JSON-to-Variant driver
// (component D): object key order from the source document determines
// dictionary assignment order, matching VariantBuilder.build_json in the
// reference implementation.
func BuildFromJSON(b *Builder, v jsonvalue.Value) error {
	switch v.Kind {
	case jsonvalue.KindObject:
		start := b.WritePos()
		fields := make([]FieldEntry, 0, len(v.Object))
		for _, member := range v.Object {
			id := b.AddKey(member.Key)
			fields = append(fields, FieldEntry{Key: member.Key, ID: id, Offset: b.WritePos() - start})
			if err := BuildFromJSON(b, member.Value); err != nil {
				return err
			}
		}
		return b.FinishObject(start, fields)

	case jsonvalue.KindArray:
		start := b.WritePos()
		offsets := make([]int, 0, len(v.Array))
		for _, elem := range v.Array {
			offsets = append(offsets, b.WritePos()-start)
			if err := BuildFromJSON(b, elem); err != nil {
				return err
			}
		}
		return b.FinishArray(start, offsets)

	case jsonvalue.KindString:
		return b.AppendString(v.String)

	case jsonvalue.KindBool:
		return b.AppendBoolean(v.Bool)

	case jsonvalue.KindNumber:
		return buildNumber(b, v.Number)

	case jsonvalue.KindNull:
		return b.AppendNull()

	default:
		return fmt.Errorf("jsonvalue: unsupported value kind %d", v.Kind)
	}
}

// buildNumber mirrors build_json's float branch: integral literals become
// LONG, everything else is tried as a DECIMAL first (it round-trips through
// exact arithmetic, unlike DOUBLE) and only falls back to DOUBLE if the
// literal doesn't fit DECIMAL16's bounds.
func buildNumber(b *Builder, n json.Number) error {
	if l, err := n.Int64(); err == nil {
		return b.AppendLong(l)
	}

	if d, ok := decimal.Parse(string(n)); ok {
		if d.Scale() <= format.MaxDecimal16Precision && d.Precision() <= format.MaxDecimal16Precision {
			return b.AppendDecimal(d)
		}
	}

	f, err := n.Float64()
	if err != nil {
		return fmt.Errorf("jsonvalue: invalid number literal %q: %w", string(n), err)
	}
	return b.AppendDouble(f)
}
