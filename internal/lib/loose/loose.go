// Package loose разбирает слабо типизированные JSON-ответы бэкенда.
//
// Одно и то же поле приходит под разными именами (userId, id, user_id, ...),
// ответ бывает обёрнут в конверт {status, data} или отдан как есть,
// идентификаторы встречаются и строками, и числами. Object позволяет
// перечислить варианты имён и взять первое непустое значение.
package loose

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Object JSON-объект ответа.
type Object map[string]any

// Decode разбирает тело ответа в Object, снимая конверт data, если он есть.
func Decode(data []byte) (Object, error) {
	const op = "loose.Decode"
	raw, err := decode(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	obj, ok := unwrap(raw).(map[string]any)
	if !ok {
		return nil, fmt.Errorf("%s: response is not an object", op)
	}
	return Object(obj), nil
}

// DecodeList разбирает ответ со списком: голый массив либо объект
// с массивом под ключом items, data, results или value.
func DecodeList(data []byte) ([]Object, error) {
	const op = "loose.DecodeList"
	raw, err := decode(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	raw = unwrap(raw)
	if raw == nil {
		return []Object{}, nil
	}
	if obj, ok := raw.(map[string]any); ok {
		if v, has := obj["data"]; has && v == nil {
			return []Object{}, nil
		}
		for _, key := range []string{"items", "data", "results", "value"} {
			if list, ok := obj[key].([]any); ok {
				raw = list
				break
			}
		}
	}
	list, ok := raw.([]any)
	if !ok {
		return nil, fmt.Errorf("%s: response is not a list", op)
	}
	out := make([]Object, 0, len(list))
	for _, item := range list {
		if obj, ok := item.(map[string]any); ok {
			out = append(out, Object(obj))
		}
	}
	return out, nil
}

func decode(data []byte) (any, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var raw any
	if err := dec.Decode(&raw); err != nil {
		return nil, err
	}
	return raw, nil
}

func unwrap(raw any) any {
	obj, ok := raw.(map[string]any)
	if !ok {
		return raw
	}
	if inner, ok := obj["data"]; ok && inner != nil {
		if _, hasStatus := obj["status"]; hasStatus || len(obj) == 1 {
			return inner
		}
	}
	return raw
}

// Value возвращает первое присутствующее и не-null значение среди ключей.
func (o Object) Value(keys ...string) (any, bool) {
	for _, k := range keys {
		if v, ok := o[k]; ok && v != nil {
			return v, true
		}
	}
	return nil, false
}

// String возвращает первое непустое строковое представление среди ключей.
// Числа приводятся к строке без экспоненты.
func (o Object) String(keys ...string) string {
	for _, k := range keys {
		v, ok := o[k]
		if !ok || v == nil {
			continue
		}
		var s string
		switch t := v.(type) {
		case string:
			s = strings.TrimSpace(t)
		case json.Number:
			s = t.String()
		case float64:
			s = strconv.FormatFloat(t, 'f', -1, 64)
		case bool:
			s = strconv.FormatBool(t)
		}
		if s != "" {
			return s
		}
	}
	return ""
}

// Bool возвращает первое распознаваемое логическое значение среди ключей.
func (o Object) Bool(keys ...string) bool {
	for _, k := range keys {
		switch t := o[k].(type) {
		case bool:
			return t
		case string:
			if b, err := strconv.ParseBool(strings.TrimSpace(t)); err == nil {
				return b
			}
		case json.Number:
			if n, err := t.Int64(); err == nil {
				return n != 0
			}
		}
	}
	return false
}

// Int возвращает первое целое значение среди ключей.
func (o Object) Int(keys ...string) int {
	for _, k := range keys {
		switch t := o[k].(type) {
		case json.Number:
			if n, err := t.Int64(); err == nil {
				return int(n)
			}
		case string:
			if n, err := strconv.Atoi(strings.TrimSpace(t)); err == nil {
				return n
			}
		}
	}
	return 0
}

// Object возвращает вложенный объект по первому подходящему ключу.
func (o Object) Object(keys ...string) Object {
	for _, k := range keys {
		if inner, ok := o[k].(map[string]any); ok {
			return Object(inner)
		}
	}
	return nil
}

var timeLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// Time возвращает первое разбираемое время среди ключей: строку в одном
// из распространённых форматов или unix-время в секундах.
func (o Object) Time(keys ...string) time.Time {
	for _, k := range keys {
		switch t := o[k].(type) {
		case string:
			s := strings.TrimSpace(t)
			for _, layout := range timeLayouts {
				if ts, err := time.Parse(layout, s); err == nil {
					return ts
				}
			}
		case json.Number:
			if n, err := t.Int64(); err == nil && n > 0 {
				return time.Unix(n, 0).UTC()
			}
		}
	}
	return time.Time{}
}

// ErrorMessage достаёт текст ошибки из тела ответа: поля message, error,
// title, detail, а также первую запись из errors. Пустая строка, если тела
// нет или оно не JSON; тогда возвращается сам текст, если он короткий.
func ErrorMessage(body []byte) string {
	body = bytes.TrimSpace(body)
	if len(body) == 0 {
		return ""
	}
	raw, err := decode(body)
	if err != nil {
		if len(body) <= 200 && !bytes.HasPrefix(body, []byte("<")) {
			return string(body)
		}
		return ""
	}
	switch t := raw.(type) {
	case string:
		return t
	case map[string]any:
		obj := Object(t)
		if msg := obj.String("message", "Message", "error", "title", "detail"); msg != "" {
			return msg
		}
		if nested := obj.Object("error"); nested != nil {
			return nested.String("message", "Message")
		}
		if list, ok := t["errors"].([]any); ok && len(list) > 0 {
			if s, ok := list[0].(string); ok {
				return s
			}
		}
	}
	return ""
}
