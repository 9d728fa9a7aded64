package relation

import (
	"database/sql/driver"
	"encoding/hex"
	"fmt"
	"math/big"
	"strconv"
	"time"
)

const nullKey = "\x00null"

// ValueKey returns a grouping key for a scanned value. Values of different Go types
// never share a key, except that integer types are keyed by numeric value.
func ValueKey(val any) string {
	if val == nil {
		return nullKey
	}

	switch v := val.(type) {
	case string:
		return "s:" + v
	case []byte:
		return "b:" + hex.EncodeToString(v)
	case bool:
		if v {
			return "t"
		}
		return "f"
	case int:
		return "i:" + strconv.FormatInt(int64(v), 10)
	case int8:
		return "i:" + strconv.FormatInt(int64(v), 10)
	case int16:
		return "i:" + strconv.FormatInt(int64(v), 10)
	case int32:
		return "i:" + strconv.FormatInt(int64(v), 10)
	case int64:
		return "i:" + strconv.FormatInt(v, 10)
	case uint8:
		return "i:" + strconv.FormatUint(uint64(v), 10)
	case uint16:
		return "i:" + strconv.FormatUint(uint64(v), 10)
	case uint32:
		return "i:" + strconv.FormatUint(uint64(v), 10)
	case uint64:
		return "i:" + strconv.FormatUint(v, 10)
	case float32:
		return "f:" + strconv.FormatFloat(float64(v), 'g', -1, 32)
	case float64:
		return "f:" + strconv.FormatFloat(v, 'g', -1, 64)
	case *big.Int:
		return "i:" + v.String()
	case time.Time:
		return "d:" + v.UTC().Format(time.RFC3339Nano)
	case driver.Valuer:
		// database types such as pgtype.Numeric reduce to a plain value
		dv, err := v.Value()
		if err != nil {
			return fmt.Sprintf("%T:%v", v, v)
		}
		return ValueKey(dv)
	case fmt.Stringer:
		return fmt.Sprintf("%T:%s", v, v.String())
	default:
		return fmt.Sprintf("%T:%v", v, v)
	}
}
