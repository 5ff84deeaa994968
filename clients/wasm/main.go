//go:build js && wasm

// CardStencil WASM — client-side card preview.
// Compiled with: GOOS=js GOARCH=wasm go build -o cardstencil.wasm ./clients/wasm/
package main

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"syscall/js"

	"github.com/xob0t/CardStencil/pkg/render"
	"github.com/xob0t/CardStencil/pkg/source"
	"github.com/xob0t/CardStencil/pkg/template"
)

// assetScheme prefixes references to assets registered from JS.
const assetScheme = "asset:"

// In-memory asset store (replaces the server-side asset manager).
var (
	assetsMu sync.RWMutex
	assets   = make(map[string]assetEntry)

	renderer *render.Renderer
)

type assetEntry struct {
	Data []byte
	Mime string
}

func main() {
	fmt.Println("CardStencil WASM loaded")

	// Font URLs are fetched by the browser's fetch API through net/http.
	renderer = render.New(context.Background(), render.Options{
		DocumentHost: js.Global().Get("location").Get("origin").String(),
	})

	// Register JS-callable functions.
	js.Global().Set("goRenderCard", js.FuncOf(renderCard))
	js.Global().Set("goRegisterAsset", js.FuncOf(registerAsset))
	js.Global().Set("goRemoveAsset", js.FuncOf(removeAsset))
	js.Global().Set("goReady", js.ValueOf(true))

	// Block forever (WASM must not exit).
	select {}
}

// resolveAsset returns the bytes of a registered asset for "asset:<id>".
func resolveAsset(ref string) ([]byte, bool) {
	id, ok := strings.CutPrefix(ref, assetScheme)
	if !ok {
		return nil, false
	}
	assetsMu.RLock()
	defer assetsMu.RUnlock()
	a, ok := assets[id]
	return a.Data, ok
}

// goRegisterAsset(id, base64Data, mime) — store an asset in Go memory.
func registerAsset(this js.Value, args []js.Value) interface{} {
	if len(args) < 3 {
		return js.ValueOf("error: need id, base64Data, mime")
	}
	id := args[0].String()
	data, err := base64.StdEncoding.DecodeString(args[1].String())
	if err != nil {
		return js.ValueOf("error: invalid base64: " + err.Error())
	}

	assetsMu.Lock()
	assets[id] = assetEntry{Data: data, Mime: args[2].String()}
	assetsMu.Unlock()
	return js.ValueOf("ok")
}

// goRemoveAsset(id) — remove an asset from Go memory.
func removeAsset(this js.Value, args []js.Value) interface{} {
	if len(args) < 1 {
		return js.ValueOf("error: need id")
	}
	assetsMu.Lock()
	delete(assets, args[0].String())
	assetsMu.Unlock()
	return js.ValueOf("ok")
}

type renderResponse struct {
	PDF      string           `json:"pdf,omitempty"`
	Warnings []render.Warning `json:"warnings"`
	Error    string           `json:"error,omitempty"`
}

// goRenderCard(templateJSON, recordJSON) — returns a Promise resolving to
// {pdf: base64, warnings: [...]} or {error}. Rendering may fetch assets,
// which must not block the JS event loop.
func renderCard(this js.Value, args []js.Value) interface{} {
	if len(args) < 2 {
		return encode(renderResponse{Error: "need templateJSON, recordJSON"})
	}
	tplJSON, recJSON := args[0].String(), args[1].String()

	executor := js.FuncOf(func(this js.Value, p []js.Value) interface{} {
		resolve := p[0]
		go func() {
			resolve.Invoke(encode(doRender(tplJSON, recJSON)))
		}()
		return nil
	})
	defer executor.Release()
	return js.Global().Get("Promise").New(executor)
}

func doRender(tplJSON, recJSON string) renderResponse {
	tpl, err := template.Parse([]byte(tplJSON))
	if err != nil {
		return renderResponse{Error: err.Error()}
	}
	var rec render.Record
	if recJSON != "" && recJSON != "null" {
		if err := json.Unmarshal([]byte(recJSON), &rec); err != nil {
			return renderResponse{Error: "parse record: " + err.Error()}
		}
	}

	if ref, ok := tpl.BasePDF.Raw().(string); ok {
		if data, ok := resolveAsset(ref); ok {
			tpl.BasePDF = source.Bytes(data)
		}
	}
	for k, v := range rec.Values {
		if data, ok := resolveAsset(strings.TrimSpace(v.Text)); ok {
			rec.Values[k] = render.Value{Data: data}
		}
	}

	res, err := renderer.RenderCard(context.Background(), tpl, rec)
	if err != nil {
		return renderResponse{Error: err.Error()}
	}
	if res.Warnings == nil {
		res.Warnings = []render.Warning{}
	}
	return renderResponse{
		PDF:      base64.StdEncoding.EncodeToString(res.Bytes),
		Warnings: res.Warnings,
	}
}

func encode(r renderResponse) js.Value {
	b, err := json.Marshal(r)
	if err != nil {
		b = []byte(`{"error":"encode response"}`)
	}
	return js.Global().Get("JSON").Call("parse", string(b))
}
