//go:build js && wasm

package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"image"
	"io"
	"syscall/js"

	"golang.org/x/image/draw"

	"github.com/inamate/psdedit/internal/composite"
	"github.com/inamate/psdedit/internal/engine"
	"github.com/inamate/psdedit/internal/export"
)

var (
	eng *engine.Engine

	// Straight-alpha copies handed to canvas ImageData.
	frame   *image.NRGBA
	overlay *image.NRGBA

	cancelReplace context.CancelFunc
)

func main() {
	eng = engine.NewEngine()

	// Create the engine API object
	psdEngine := js.Global().Get("Object").New()

	// --- Commands (frontend → backend) ---
	psdEngine.Set("loadBundle", js.FuncOf(loadBundle))
	psdEngine.Set("loadSampleDocument", js.FuncOf(loadSampleDocument))
	psdEngine.Set("setSampling", js.FuncOf(setSampling))
	psdEngine.Set("setSelection", js.FuncOf(setSelection))
	psdEngine.Set("setVisibility", js.FuncOf(setVisibility))
	psdEngine.Set("setViewScale", js.FuncOf(setViewScale))
	psdEngine.Set("pointerDown", js.FuncOf(pointerDown))
	psdEngine.Set("pointerMove", js.FuncOf(pointerMove))
	psdEngine.Set("pointerUp", js.FuncOf(pointerUp))
	psdEngine.Set("replaceContent", js.FuncOf(replaceContent))
	psdEngine.Set("cancelReplace", js.FuncOf(cancelReplaceContent))

	// --- Queries (frontend ← backend) ---
	psdEngine.Set("render", js.FuncOf(render))
	psdEngine.Set("renderOverlay", js.FuncOf(renderOverlay))
	psdEngine.Set("getCursor", js.FuncOf(getCursor))
	psdEngine.Set("getLayers", js.FuncOf(getLayers))
	psdEngine.Set("getSelection", js.FuncOf(getSelection))
	psdEngine.Set("getOverlay", js.FuncOf(getOverlay))
	psdEngine.Set("getViewScale", js.FuncOf(getViewScale))
	psdEngine.Set("getVersion", js.FuncOf(getVersion))
	psdEngine.Set("exportImage", js.FuncOf(exportImage))

	// Register on global scope
	js.Global().Set("psdEngine", psdEngine)

	// Signal that WASM is ready
	js.Global().Set("psdWasmReady", js.ValueOf(true))

	// Keep Go runtime alive
	select {}
}

func okResult() interface{} {
	return js.ValueOf(map[string]interface{}{"ok": true})
}

func errResult(err error) interface{} {
	return js.ValueOf(map[string]interface{}{"error": err.Error()})
}

// --- Command Handlers ---

func loadBundle(this js.Value, args []js.Value) interface{} {
	if len(args) < 1 {
		return errResult(errors.New("missing bundle JSON"))
	}
	if err := eng.LoadBundle([]byte(args[0].String())); err != nil {
		return errResult(err)
	}
	return okResult()
}

func loadSampleDocument(this js.Value, args []js.Value) interface{} {
	eng.LoadSampleDocument()
	return okResult()
}

func setSampling(this js.Value, args []js.Value) interface{} {
	if len(args) < 1 {
		return nil
	}
	eng.SetSampling(composite.ParseSampling(args[0].String()))
	return nil
}

func setSelection(this js.Value, args []js.Value) interface{} {
	id := ""
	if len(args) > 0 && args[0].Type() == js.TypeString {
		id = args[0].String()
	}
	if err := eng.SetSelection(id); err != nil {
		return errResult(err)
	}
	return okResult()
}

func setVisibility(this js.Value, args []js.Value) interface{} {
	if len(args) < 2 {
		return errResult(errors.New("missing layer id or visibility"))
	}
	if err := eng.SetVisibility(args[0].String(), args[1].Bool()); err != nil {
		return errResult(err)
	}
	return okResult()
}

func setViewScale(this js.Value, args []js.Value) interface{} {
	if len(args) < 1 {
		return nil
	}
	eng.SetViewScale(args[0].Float())
	return nil
}

func pointerDown(this js.Value, args []js.Value) interface{} {
	if len(args) < 2 {
		return nil
	}
	eng.PointerDown(args[0].Float(), args[1].Float())
	return js.ValueOf(string(eng.Cursor()))
}

func pointerMove(this js.Value, args []js.Value) interface{} {
	if len(args) < 2 {
		return nil
	}
	eng.PointerMove(args[0].Float(), args[1].Float())
	return js.ValueOf(string(eng.Cursor()))
}

// pointerUp reports whether the gesture changed the document.
func pointerUp(this js.Value, args []js.Value) interface{} {
	if len(args) < 2 {
		return js.ValueOf(false)
	}
	return js.ValueOf(eng.PointerUp(args[0].Float(), args[1].Float()))
}

// replaceContent asks the page for an image through the pickImage
// callback (a function returning a Promise of a Uint8Array, or null when
// dismissed) and installs it on the selected layer. It returns a Promise.
func replaceContent(this js.Value, args []js.Value) interface{} {
	if len(args) < 1 || args[0].Type() != js.TypeFunction {
		return errResult(errors.New("missing pickImage callback"))
	}
	pickImage := args[0]

	if cancelReplace != nil {
		cancelReplace()
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancelReplace = cancel

	results := eng.RequestContent(ctx, eng.Selection(), jsPicker(pickImage))

	executor := js.FuncOf(func(this js.Value, p []js.Value) interface{} {
		resolve, reject := p[0], p[1]
		go func() {
			defer cancel()
			// Goroutines share the single wasm thread, so applying the
			// result here cannot interleave with another engine call.
			if err := eng.ApplyReplacement(<-results); err != nil {
				reject.Invoke(err.Error())
				return
			}
			resolve.Invoke(eng.Version())
		}()
		return nil
	})
	defer executor.Release()
	return js.Global().Get("Promise").New(executor)
}

func cancelReplaceContent(this js.Value, args []js.Value) interface{} {
	if cancelReplace != nil {
		cancelReplace()
		cancelReplace = nil
	}
	return nil
}

func jsPicker(pickImage js.Value) engine.Picker {
	type picked struct {
		data []byte
		err  error
	}
	return func(ctx context.Context) (io.ReadCloser, error) {
		ch := make(chan picked, 1)
		onResolve := js.FuncOf(func(this js.Value, args []js.Value) interface{} {
			if len(args) == 0 || args[0].IsNull() || args[0].IsUndefined() {
				ch <- picked{}
				return nil
			}
			buf := make([]byte, args[0].Get("length").Int())
			js.CopyBytesToGo(buf, args[0])
			ch <- picked{data: buf}
			return nil
		})
		onReject := js.FuncOf(func(this js.Value, args []js.Value) interface{} {
			msg := "image picker failed"
			if len(args) > 0 {
				msg = args[0].Call("toString").String()
			}
			ch <- picked{err: errors.New(msg)}
			return nil
		})
		pickImage.Invoke().Call("then", onResolve, onReject)

		select {
		case p := <-ch:
			onResolve.Release()
			onReject.Release()
			if p.err != nil {
				return nil, p.err
			}
			if p.data == nil {
				return nil, nil
			}
			return io.NopCloser(bytes.NewReader(p.data)), nil
		case <-ctx.Done():
			// The callbacks stay registered; the page may still settle
			// the promise.
			return nil, ctx.Err()
		}
	}
}

// --- Query Handlers ---

// render copies the composite into the Uint8ClampedArray argument and
// returns its size.
func render(this js.Value, args []js.Value) interface{} {
	img := eng.Render()
	if img == nil {
		return errResult(engine.ErrNoDocument)
	}
	frame = straight(frame, img)
	return copyOut(frame, args)
}

func renderOverlay(this js.Value, args []js.Value) interface{} {
	img := eng.OverlayImage()
	if img == nil {
		return errResult(engine.ErrNoDocument)
	}
	overlay = straight(overlay, img)
	return copyOut(overlay, args)
}

func straight(dst *image.NRGBA, src *image.RGBA) *image.NRGBA {
	if dst == nil || dst.Rect != src.Rect {
		dst = image.NewNRGBA(src.Rect)
	}
	draw.Draw(dst, src.Rect, src, src.Rect.Min, draw.Src)
	return dst
}

func copyOut(img *image.NRGBA, args []js.Value) interface{} {
	if len(args) > 0 && args[0].Truthy() {
		js.CopyBytesToJS(args[0], img.Pix)
	}
	return js.ValueOf(map[string]interface{}{
		"width":   img.Rect.Dx(),
		"height":  img.Rect.Dy(),
		"version": eng.Version(),
	})
}

func getCursor(this js.Value, args []js.Value) interface{} {
	return js.ValueOf(string(eng.Cursor()))
}

func getLayers(this js.Value, args []js.Value) interface{} {
	data, err := json.Marshal(eng.Layers())
	if err != nil {
		return js.ValueOf("[]")
	}
	return js.ValueOf(string(data))
}

func getSelection(this js.Value, args []js.Value) interface{} {
	return js.ValueOf(eng.Selection())
}

func getOverlay(this js.Value, args []js.Value) interface{} {
	o, ok := eng.Overlay()
	if !ok {
		return js.Null()
	}
	data, err := json.Marshal(o)
	if err != nil {
		return js.Null()
	}
	return js.ValueOf(string(data))
}

func getViewScale(this js.Value, args []js.Value) interface{} {
	return js.ValueOf(eng.ViewScale())
}

func getVersion(this js.Value, args []js.Value) interface{} {
	return js.ValueOf(eng.Version())
}

// exportImage encodes the composite as png, jpeg or webp and returns a
// Uint8Array.
func exportImage(this js.Value, args []js.Value) interface{} {
	name := "png"
	if len(args) > 0 && args[0].Type() == js.TypeString {
		name = args[0].String()
	}
	format, err := export.ParseFormat(name)
	if err != nil {
		return errResult(err)
	}
	img := eng.Render()
	if img == nil {
		return errResult(engine.ErrNoDocument)
	}
	var buf bytes.Buffer
	if err := export.Encode(&buf, img, format, export.DefaultJPEGQuality); err != nil {
		return errResult(err)
	}
	out := js.Global().Get("Uint8Array").New(buf.Len())
	js.CopyBytesToJS(out, buf.Bytes())
	return out
}
