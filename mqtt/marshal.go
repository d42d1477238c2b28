package mqtt

import (
	"strconv"

	"github.com/go-json-experiment/json"
)

// ValueMarshaler converts values of type T to the payload written to an MQTT Topic.
type ValueMarshaler[T any] func(v T) ([]byte, error)

// ValueUnmarshaler converts the payload of an MQTT Message to a value of type T.
type ValueUnmarshaler[T any] func([]byte) (T, error)

// NullPayload is written for readings that have no value. Home Assistant renders it as "unknown" for sensors.
const NullPayload = "None"

var (
	StringMarshaler ValueMarshaler[string] = func(v string) ([]byte, error) {
		return []byte(v), nil
	}

	StringUnmarshaler ValueUnmarshaler[string] = func(bytes []byte) (string, error) {
		return string(bytes), nil
	}

	FloatMarshaler ValueMarshaler[float64] = func(v float64) ([]byte, error) {
		return strconv.AppendFloat(nil, v, 'f', -1, 64), nil
	}

	FloatUnmarshaler ValueUnmarshaler[float64] = func(bytes []byte) (float64, error) {
		return strconv.ParseFloat(string(bytes), 64)
	}

	// OptionalFloatMarshaler writes NullPayload for nil readings and the formatted float otherwise.
	OptionalFloatMarshaler ValueMarshaler[*float64] = func(v *float64) ([]byte, error) {
		if v == nil {
			return []byte(NullPayload), nil
		}

		return FloatMarshaler(*v)
	}
)

// JsonValueMarshaler returns a ValueMarshaler for type T implemented by marshaling the value to Json.
func JsonValueMarshaler[T any]() ValueMarshaler[T] {
	return func(v T) ([]byte, error) {
		return json.Marshal(v)
	}
}

// JsonValueUnmarshaler returns a ValueUnmarshaler for type T implemented by un-marshaling the payload from json.
func JsonValueUnmarshaler[T any]() ValueUnmarshaler[T] {
	return func(bytes []byte) (T, error) {
		var v T

		return v, json.Unmarshal(bytes, &v)
	}
}
