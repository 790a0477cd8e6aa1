// Package vm - the primitive table: arithmetic/list fast paths plus the
// domain standard library (HTTP, crypto, compression, file I/O, JSON,
// regex, random, date/time), generalized from the teacher's send()
// primitive dispatch (pkg/vm/vm.go) and its companion primitives.go from
// Smalltalk message selectors over Go native strings/Arrays to Scheme-style
// named primitives operating on value.Value.
package vm

import (
	"archive/zip"
	"bytes"
	"compress/gzip"
	"crypto/aes"
	"crypto/cipher"
	"crypto/md5"
	"crypto/rand"
	"crypto/sha256"
	"crypto/sha512"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"math/big"
	"net/http"
	"os"
	"regexp"
	"strings"
	"time"

	"golang.org/x/crypto/sha3"

	"github.com/avl-labs/wisp/pkg/bignum"
	"github.com/avl-labs/wisp/pkg/handle"
	"github.com/avl-labs/wisp/pkg/module"
	"github.com/avl-labs/wisp/pkg/object"
	"github.com/avl-labs/wisp/pkg/value"
)

// --- arithmetic/list fast paths (spec.md §4.6 PRIMCALL family) ---

// toBignum unwraps a fixnum or bignum value.Value into a *bignum.Bignum,
// promoting fixnums with NewInt.
func toBignum(v value.Value) (*bignum.Bignum, bool) {
	if n, ok := v.FixnumValue(); ok {
		return bignum.NewInt(n), true
	}
	if bn, ok := v.Object().(*bignum.Bignum); ok {
		return bn, true
	}
	return nil, false
}

// numResult narrows a bignum result back to a fixnum when it fits and is
// exact, keeping small-integer arithmetic cheap; inexact or oversized
// results stay boxed (spec.md §4.1, §8's "Inexact contamination").
func numResult(bn *bignum.Bignum) value.Value {
	if !bn.Inexact && bn.Integer {
		if n, ok := bn.ToFixnum(); ok {
			return value.Fixnum(n)
		}
	}
	return value.Pointer(bn)
}

func isInexact(bn *bignum.Bignum) bool { return bn.Real || bn.Inexact }

func numAdd(a, b *bignum.Bignum) (value.Value, error) {
	if isInexact(a) || isInexact(b) {
		r, err := bignum.RealAdd(a, b)
		if err != nil {
			return value.Value{}, err
		}
		return numResult(r), nil
	}
	r, err := bignum.Add(a, b)
	if err != nil {
		return value.Value{}, err
	}
	return numResult(r), nil
}

func numSub(a, b *bignum.Bignum) (value.Value, error) {
	if isInexact(a) || isInexact(b) {
		r, err := bignum.RealSubtract(a, b)
		if err != nil {
			return value.Value{}, err
		}
		return numResult(r), nil
	}
	r, err := bignum.Subtract(a, b)
	if err != nil {
		return value.Value{}, err
	}
	return numResult(r), nil
}

func numMul(a, b *bignum.Bignum) (value.Value, error) {
	if isInexact(a) || isInexact(b) {
		r, err := bignum.RealMultiply(a, b)
		if err != nil {
			return value.Value{}, err
		}
		return numResult(r), nil
	}
	r, err := bignum.Multiply(a, b)
	if err != nil {
		return value.Value{}, err
	}
	return numResult(r), nil
}

func (t *Thread) fastAdd(a, b value.Value) {
	bn1, ok1 := toBignum(a)
	bn2, ok2 := toBignum(b)
	if !ok1 || !ok2 {
		t.RaiseErrorf(condFunctionError, "+: not a number")
		return
	}
	result, err := numAdd(bn1, bn2)
	if err != nil {
		t.raiseFromError(err)
		return
	}
	t.Val = result
}

func (t *Thread) fastSubtract(a, b value.Value) {
	bn1, ok1 := toBignum(a)
	bn2, ok2 := toBignum(b)
	if !ok1 || !ok2 {
		t.RaiseErrorf(condFunctionError, "-: not a number")
		return
	}
	result, err := numSub(bn1, bn2)
	if err != nil {
		t.raiseFromError(err)
		return
	}
	t.Val = result
}

func (t *Thread) fastMultiply(a, b value.Value) {
	bn1, ok1 := toBignum(a)
	bn2, ok2 := toBignum(b)
	if !ok1 || !ok2 {
		t.RaiseErrorf(condFunctionError, "*: not a number")
		return
	}
	result, err := numMul(bn1, bn2)
	if err != nil {
		t.raiseFromError(err)
		return
	}
	t.Val = result
}

func (t *Thread) fastCompare(a, b value.Value, pred func(int) bool) {
	bn1, ok1 := toBignum(a)
	bn2, ok2 := toBignum(b)
	if !ok1 || !ok2 {
		t.RaiseErrorf(condFunctionError, "comparison: not a number")
		return
	}
	t.Val = value.Bool(pred(bignum.Compare(bn1, bn2)))
}

func (t *Thread) fastEq(a, b value.Value) { t.Val = value.Bool(value.Eq(a, b)) }

func (t *Thread) fastCons(a, b value.Value) {
	t.Val = value.Pointer(&object.Pair{Head: a, Tail: b})
}

func (t *Thread) fastHead(v value.Value) {
	p, ok := v.Object().(*object.Pair)
	if !ok {
		t.RaiseErrorf(condFunctionError, "head: not a pair")
		return
	}
	t.Val = p.Head
}

func (t *Thread) fastTail(v value.Value) {
	p, ok := v.Object().(*object.Pair)
	if !ok {
		t.RaiseErrorf(condFunctionError, "tail: not a pair")
		return
	}
	t.Val = p.Tail
}

func (t *Thread) fastPairp(v value.Value) {
	_, ok := v.Object().(*object.Pair)
	t.Val = value.Bool(ok)
}

func (t *Thread) fastNullp(v value.Value) { t.Val = value.Bool(v == value.Nil) }

func (t *Thread) fastNot(v value.Value) { t.Val = value.Bool(v.IsFalse()) }

func prim(name string, arity int, varargs bool, fn func([]value.Value) (value.Value, error)) *object.Primitive {
	return &object.Primitive{Name: name, Arity: arity, Varargs: varargs, Fn: fn}
}

func wantString(v value.Value) (string, bool) {
	switch s := v.Object().(type) {
	case *object.String:
		return string(s.Bytes), true
	case *object.Substring:
		return string(s.Bytes()), true
	}
	return "", false
}

func wrapString(s string) value.Value { return value.Pointer(object.NewString(s)) }

// RegisterBuiltins defines the domain primitive table into env as ordinary
// global bindings: HTTP, crypto (including sha3, absent from the teacher
// but present elsewhere in the retrieved pack), compression, file I/O,
// JSON, regex, randomness, and date/time — generalized from the teacher's
// Smalltalk selector-keyed send() dispatch (httpGet:, aesEncrypt:key:,
// sha256:, base64Encode:, zipCompress:, fileRead:, jsonParse:,
// regexMatch:text:, randomInt:max:, dateNow, ...) to named primitives
// bound once at VM setup rather than resolved per-call by string compare.
func RegisterBuiltins(t *Thread, env *module.Module, g *module.Globals) {
	def := func(name string, p *object.Primitive) {
		gvi := g.AllocateValue(value.Pointer(p))
		env.Symbols[name] = &module.Binding{Scope: module.ScopeToplevel, GVI: gvi, DefiningMod: env.Name}
		env.Export(name)
	}

	def("call/cc", prim("call/cc", 1, false, func(a []value.Value) (value.Value, error) {
		return t.CallCC(a[0])
	}))
	def("call-with-current-continuation", prim("call-with-current-continuation", 1, false, func(a []value.Value) (value.Value, error) {
		return t.CallCC(a[0])
	}))
	def("raise", prim("raise", 1, false, func(a []value.Value) (value.Value, error) {
		inst, ok := a[0].Object().(*object.StructInstance)
		if !ok {
			inst = newCondition(condError, fmt.Sprint(a[0]))
		}
		return t.Raise(inst, false), nil
	}))
	def("raise-continuable", prim("raise-continuable", 1, false, func(a []value.Value) (value.Value, error) {
		inst, ok := a[0].Object().(*object.StructInstance)
		if !ok {
			inst = newCondition(condError, fmt.Sprint(a[0]))
		}
		return t.Raise(inst, true), nil
	}))

	def("http-get", prim("http-get", 1, false, func(a []value.Value) (value.Value, error) {
		url, _ := wantString(a[0])
		resp, err := http.Get(url)
		if err != nil {
			return value.Value{}, raiseKind(condSystemError, "http-get: %v", err)
		}
		defer resp.Body.Close()
		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return value.Value{}, raiseKind(condSystemError, "http-get: %v", err)
		}
		return wrapString(string(body)), nil
	}))
	def("http-post", prim("http-post", 2, false, func(a []value.Value) (value.Value, error) {
		url, _ := wantString(a[0])
		body, _ := wantString(a[1])
		resp, err := http.Post(url, "text/plain", strings.NewReader(body))
		if err != nil {
			return value.Value{}, raiseKind(condSystemError, "http-post: %v", err)
		}
		defer resp.Body.Close()
		out, err := io.ReadAll(resp.Body)
		if err != nil {
			return value.Value{}, raiseKind(condSystemError, "http-post: %v", err)
		}
		return wrapString(string(out)), nil
	}))

	def("sha256", prim("sha256", 1, false, func(a []value.Value) (value.Value, error) {
		s, _ := wantString(a[0])
		sum := sha256.Sum256([]byte(s))
		return wrapString(hex.EncodeToString(sum[:])), nil
	}))
	def("sha512", prim("sha512", 1, false, func(a []value.Value) (value.Value, error) {
		s, _ := wantString(a[0])
		sum := sha512.Sum512([]byte(s))
		return wrapString(hex.EncodeToString(sum[:])), nil
	}))
	def("sha3-256", prim("sha3-256", 1, false, func(a []value.Value) (value.Value, error) {
		s, _ := wantString(a[0])
		sum := sha3.Sum256([]byte(s))
		return wrapString(hex.EncodeToString(sum[:])), nil
	}))
	def("md5", prim("md5", 1, false, func(a []value.Value) (value.Value, error) {
		s, _ := wantString(a[0])
		sum := md5.Sum([]byte(s))
		return wrapString(hex.EncodeToString(sum[:])), nil
	}))

	def("base64-encode", prim("base64-encode", 1, false, func(a []value.Value) (value.Value, error) {
		s, _ := wantString(a[0])
		return wrapString(base64.StdEncoding.EncodeToString([]byte(s))), nil
	}))
	def("base64-decode", prim("base64-decode", 1, false, func(a []value.Value) (value.Value, error) {
		s, _ := wantString(a[0])
		out, err := base64.StdEncoding.DecodeString(s)
		if err != nil {
			return value.Value{}, raiseKind(condSystemError, "base64-decode: %v", err)
		}
		return wrapString(string(out)), nil
	}))

	def("aes-encrypt", prim("aes-encrypt", 2, false, func(a []value.Value) (value.Value, error) {
		plain, _ := wantString(a[0])
		key, _ := wantString(a[1])
		out, err := aesEncrypt([]byte(plain), []byte(key))
		if err != nil {
			return value.Value{}, raiseKind(condSystemError, "aes-encrypt: %v", err)
		}
		return wrapString(base64.StdEncoding.EncodeToString(out)), nil
	}))
	def("aes-decrypt", prim("aes-decrypt", 2, false, func(a []value.Value) (value.Value, error) {
		ciphB64, _ := wantString(a[0])
		key, _ := wantString(a[1])
		ciph, err := base64.StdEncoding.DecodeString(ciphB64)
		if err != nil {
			return value.Value{}, raiseKind(condSystemError, "aes-decrypt: %v", err)
		}
		out, err := aesDecrypt(ciph, []byte(key))
		if err != nil {
			return value.Value{}, raiseKind(condSystemError, "aes-decrypt: %v", err)
		}
		return wrapString(string(out)), nil
	}))
	def("aes-generate-key", prim("aes-generate-key", 0, false, func(a []value.Value) (value.Value, error) {
		key := make([]byte, 32)
		if _, err := rand.Read(key); err != nil {
			return value.Value{}, raiseKind(condSystemError, "aes-generate-key: %v", err)
		}
		return wrapString(base64.StdEncoding.EncodeToString(key)), nil
	}))

	def("zip-compress", prim("zip-compress", 1, false, func(a []value.Value) (value.Value, error) {
		s, _ := wantString(a[0])
		var buf bytes.Buffer
		w := zip.NewWriter(&buf)
		f, err := w.Create("data")
		if err == nil {
			_, err = f.Write([]byte(s))
		}
		if err == nil {
			err = w.Close()
		}
		if err != nil {
			return value.Value{}, raiseKind(condSystemError, "zip-compress: %v", err)
		}
		return wrapString(base64.StdEncoding.EncodeToString(buf.Bytes())), nil
	}))
	def("zip-decompress", prim("zip-decompress", 1, false, func(a []value.Value) (value.Value, error) {
		s, _ := wantString(a[0])
		decoded, err := base64.StdEncoding.DecodeString(s)
		if err != nil {
			return value.Value{}, raiseKind(condSystemError, "zip-decompress: %v", err)
		}
		r, err := zip.NewReader(bytes.NewReader(decoded), int64(len(decoded)))
		if err != nil || len(r.File) == 0 {
			return value.Value{}, raiseKind(condSystemError, "zip-decompress: empty or invalid archive")
		}
		rc, err := r.File[0].Open()
		if err != nil {
			return value.Value{}, raiseKind(condSystemError, "zip-decompress: %v", err)
		}
		defer rc.Close()
		content, err := io.ReadAll(rc)
		if err != nil {
			return value.Value{}, raiseKind(condSystemError, "zip-decompress: %v", err)
		}
		return wrapString(string(content)), nil
	}))
	def("gzip-compress", prim("gzip-compress", 1, false, func(a []value.Value) (value.Value, error) {
		s, _ := wantString(a[0])
		var buf bytes.Buffer
		w := gzip.NewWriter(&buf)
		_, _ = w.Write([]byte(s))
		_ = w.Close()
		return wrapString(base64.StdEncoding.EncodeToString(buf.Bytes())), nil
	}))
	def("gzip-decompress", prim("gzip-decompress", 1, false, func(a []value.Value) (value.Value, error) {
		s, _ := wantString(a[0])
		decoded, err := base64.StdEncoding.DecodeString(s)
		if err != nil {
			return value.Value{}, raiseKind(condSystemError, "gzip-decompress: %v", err)
		}
		r, err := gzip.NewReader(bytes.NewReader(decoded))
		if err != nil {
			return value.Value{}, raiseKind(condSystemError, "gzip-decompress: %v", err)
		}
		out, err := io.ReadAll(r)
		if err != nil {
			return value.Value{}, raiseKind(condSystemError, "gzip-decompress: %v", err)
		}
		return wrapString(string(out)), nil
	}))

	def("file-read", prim("file-read", 1, false, func(a []value.Value) (value.Value, error) {
		name, _ := wantString(a[0])
		data, err := os.ReadFile(name)
		if err != nil {
			return value.Value{}, raiseKind(condIOFilenameError, "file-read: %v", err)
		}
		return wrapString(string(data)), nil
	}))
	def("file-write", prim("file-write", 2, false, func(a []value.Value) (value.Value, error) {
		name, _ := wantString(a[0])
		content, _ := wantString(a[1])
		if err := os.WriteFile(name, []byte(content), 0644); err != nil {
			return value.Value{}, raiseKind(condIOFilenameError, "file-write: %v", err)
		}
		return value.Unspec, nil
	}))
	def("file-exists?", prim("file-exists?", 1, false, func(a []value.Value) (value.Value, error) {
		name, _ := wantString(a[0])
		_, err := os.Stat(name)
		return value.Bool(err == nil), nil
	}))
	def("file-delete", prim("file-delete", 1, false, func(a []value.Value) (value.Value, error) {
		name, _ := wantString(a[0])
		if err := os.Remove(name); err != nil {
			return value.Value{}, raiseKind(condIOFilenameError, "file-delete: %v", err)
		}
		return value.Unspec, nil
	}))
	def("open-input-file", prim("open-input-file", 1, false, func(a []value.Value) (value.Value, error) {
		name, _ := wantString(a[0])
		h, err := handle.OpenFile(name, os.O_RDONLY, 0)
		if err != nil {
			return value.Value{}, raiseKind(condIOFilenameError, "open-input-file: %v", err)
		}
		return value.Pointer(h), nil
	}))
	def("open-output-file", prim("open-output-file", 1, false, func(a []value.Value) (value.Value, error) {
		name, _ := wantString(a[0])
		h, err := handle.OpenFile(name, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0644)
		if err != nil {
			return value.Value{}, raiseKind(condIOFilenameError, "open-output-file: %v", err)
		}
		return value.Pointer(h), nil
	}))

	def("json-parse", prim("json-parse", 1, false, func(a []value.Value) (value.Value, error) {
		s, _ := wantString(a[0])
		var v interface{}
		if err := json.Unmarshal([]byte(s), &v); err != nil {
			return value.Value{}, raiseKind(condSystemError, "json-parse: %v", err)
		}
		return jsonToValue(v), nil
	}))
	def("json-generate", prim("json-generate", 1, false, func(a []value.Value) (value.Value, error) {
		out, err := json.Marshal(valueToJSON(a[0]))
		if err != nil {
			return value.Value{}, raiseKind(condSystemError, "json-generate: %v", err)
		}
		return wrapString(string(out)), nil
	}))

	def("regex-match?", prim("regex-match?", 2, false, func(a []value.Value) (value.Value, error) {
		pat, _ := wantString(a[0])
		text, _ := wantString(a[1])
		re, err := regexp.Compile(pat)
		if err != nil {
			return value.Value{}, raiseKind(condSystemError, "regex-match?: %v", err)
		}
		return value.Bool(re.MatchString(text)), nil
	}))
	def("regex-find-all", prim("regex-find-all", 2, false, func(a []value.Value) (value.Value, error) {
		pat, _ := wantString(a[0])
		text, _ := wantString(a[1])
		re, err := regexp.Compile(pat)
		if err != nil {
			return value.Value{}, raiseKind(condSystemError, "regex-find-all: %v", err)
		}
		matches := re.FindAllString(text, -1)
		elems := make([]value.Value, len(matches))
		for i, m := range matches {
			elems[i] = wrapString(m)
		}
		return object.List(elems...), nil
	}))
	def("regex-replace", prim("regex-replace", 3, false, func(a []value.Value) (value.Value, error) {
		pat, _ := wantString(a[0])
		text, _ := wantString(a[1])
		repl, _ := wantString(a[2])
		re, err := regexp.Compile(pat)
		if err != nil {
			return value.Value{}, raiseKind(condSystemError, "regex-replace: %v", err)
		}
		return wrapString(re.ReplaceAllString(text, repl)), nil
	}))

	def("random-int", prim("random-int", 2, false, func(a []value.Value) (value.Value, error) {
		min, ok1 := a[0].FixnumValue()
		max, ok2 := a[1].FixnumValue()
		if !ok1 || !ok2 || min > max {
			return value.Value{}, raiseKind(condFunctionError, "random-int: expected min <= max")
		}
		n, err := rand.Int(rand.Reader, big.NewInt(max-min+1))
		if err != nil {
			return value.Value{}, raiseKind(condSystemError, "random-int: %v", err)
		}
		return value.Fixnum(n.Int64() + min), nil
	}))
	def("random-bytes", prim("random-bytes", 1, false, func(a []value.Value) (value.Value, error) {
		n, ok := a[0].FixnumValue()
		if !ok || n < 0 {
			return value.Value{}, raiseKind(condFunctionError, "random-bytes: expected a non-negative fixnum")
		}
		buf := make([]byte, n)
		if _, err := rand.Read(buf); err != nil {
			return value.Value{}, raiseKind(condSystemError, "random-bytes: %v", err)
		}
		return wrapString(base64.StdEncoding.EncodeToString(buf)), nil
	}))

	def("date-now", prim("date-now", 0, false, func(a []value.Value) (value.Value, error) {
		return value.Fixnum(time.Now().Unix()), nil
	}))
	def("date-format", prim("date-format", 2, false, func(a []value.Value) (value.Value, error) {
		ts, ok := a[0].FixnumValue()
		if !ok {
			return value.Value{}, raiseKind(condFunctionError, "date-format: expected a fixnum timestamp")
		}
		format, _ := wantString(a[1])
		return wrapString(formatUnix(ts, format)), nil
	}))
	def("date-parse", prim("date-parse", 2, false, func(a []value.Value) (value.Value, error) {
		s, _ := wantString(a[0])
		format, _ := wantString(a[1])
		unix, err := parseUnix(s, format)
		if err != nil {
			return value.Value{}, raiseKind(condSystemError, "date-parse: %v", err)
		}
		return value.Fixnum(unix), nil
	}))

	def("current-module", prim("current-module", 0, false, func(a []value.Value) (value.Value, error) {
		return value.Pointer(t.Module), nil
	}))
	def("%set-current-module!", prim("%set-current-module!", 1, false, func(a []value.Value) (value.Value, error) {
		m, ok := a[0].Object().(*module.Module)
		if !ok {
			return value.Value{}, raiseKind(condFunctionError, "%%set-current-module!: expected a module")
		}
		prev := t.Module
		t.Module = m
		return value.Pointer(prev), nil
	}))
}

func formatUnix(ts int64, format string) string {
	tm := time.Unix(ts, 0).UTC()
	switch format {
	case "iso8601", "ISO8601", "rfc3339", "RFC3339":
		return tm.Format(time.RFC3339)
	case "date":
		return tm.Format("2006-01-02")
	case "time":
		return tm.Format("15:04:05")
	case "datetime":
		return tm.Format("2006-01-02 15:04:05")
	default:
		return tm.Format(format)
	}
}

func parseUnix(s, format string) (int64, error) {
	var layout string
	switch format {
	case "iso8601", "ISO8601", "rfc3339", "RFC3339":
		layout = time.RFC3339
	case "date":
		layout = "2006-01-02"
	case "time":
		layout = "15:04:05"
	case "datetime":
		layout = "2006-01-02 15:04:05"
	default:
		layout = format
	}
	tm, err := time.Parse(layout, s)
	if err != nil {
		return 0, err
	}
	return tm.Unix(), nil
}

func aesEncrypt(plain, key []byte) ([]byte, error) {
	block, err := aes.NewCipher(normalizeKey(key))
	if err != nil {
		return nil, err
	}
	iv := make([]byte, aes.BlockSize)
	if _, err := rand.Read(iv); err != nil {
		return nil, err
	}
	padded := pkcs7Pad(plain, aes.BlockSize)
	out := make([]byte, len(iv)+len(padded))
	copy(out, iv)
	cipher.NewCBCEncrypter(block, iv).CryptBlocks(out[len(iv):], padded)
	return out, nil
}

func aesDecrypt(ciphertext, key []byte) ([]byte, error) {
	block, err := aes.NewCipher(normalizeKey(key))
	if err != nil {
		return nil, err
	}
	if len(ciphertext) < aes.BlockSize {
		return nil, fmt.Errorf("ciphertext too short")
	}
	iv, body := ciphertext[:aes.BlockSize], ciphertext[aes.BlockSize:]
	out := make([]byte, len(body))
	cipher.NewCBCDecrypter(block, iv).CryptBlocks(out, body)
	return pkcs7Unpad(out), nil
}

func normalizeKey(key []byte) []byte {
	out := make([]byte, 32)
	copy(out, key)
	return out
}

func pkcs7Pad(b []byte, size int) []byte {
	pad := size - len(b)%size
	return append(append([]byte{}, b...), bytes.Repeat([]byte{byte(pad)}, pad)...)
}

func pkcs7Unpad(b []byte) []byte {
	if len(b) == 0 {
		return b
	}
	pad := int(b[len(b)-1])
	if pad > len(b) {
		return b
	}
	return b[:len(b)-pad]
}

func jsonToValue(v interface{}) value.Value {
	switch x := v.(type) {
	case nil:
		return value.Nil
	case bool:
		return value.Bool(x)
	case float64:
		if x == float64(int64(x)) {
			return value.Fixnum(int64(x))
		}
		bn, err := bignum.NewReal(x)
		if err != nil {
			return value.Fixnum(int64(x))
		}
		return value.Pointer(bn)
	case string:
		return wrapString(x)
	case []interface{}:
		elems := make([]value.Value, len(x))
		for i, e := range x {
			elems[i] = jsonToValue(e)
		}
		return object.List(elems...)
	case map[string]interface{}:
		h := object.NewHash(object.DefaultEqual, object.DefaultHash)
		for k, e := range x {
			h.Set(wrapString(k), jsonToValue(e))
		}
		return value.Pointer(h)
	default:
		return value.Unspec
	}
}

func valueToJSON(v value.Value) interface{} {
	if n, ok := v.FixnumValue(); ok {
		return n
	}
	switch v {
	case value.True:
		return true
	case value.False:
		return false
	case value.Nil:
		return nil
	}
	if s, ok := wantString(v); ok {
		return s
	}
	if h, ok := v.Object().(*object.Hash); ok {
		return h.String()
	}
	if elems, ok := object.ToSlice(v); ok {
		out := make([]interface{}, len(elems))
		for i, e := range elems {
			out[i] = valueToJSON(e)
		}
		return out
	}
	return v.String()
}
