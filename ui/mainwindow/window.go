// Package mainwindow provides the main application window.
package mainwindow

import (
	"errors"
	"fmt"
	"image"
	"log"
	"path/filepath"
	"time"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/storage"
	"fyne.io/fyne/v2/theme"
	"fyne.io/fyne/v2/widget"

	"defect-synth/internal/app"
	"defect-synth/internal/codec"
	dsimage "defect-synth/internal/image"
	"defect-synth/internal/region"
	"defect-synth/internal/version"
	"defect-synth/pkg/geometry"
	"defect-synth/ui/canvas"
	"defect-synth/ui/prefs"
)

const windowTitle = "Defect Synth"

// MainWindow is the primary application window: the source (NG) pane on
// the left, the target (OK) pane on the right.
type MainWindow struct {
	fyne.Window
	app   fyne.App
	state *app.State
	prefs *prefs.Prefs

	sourcePane *canvas.ImagePane
	targetPane *canvas.ImagePane
	split      *container.Split
	statusBar  *widget.Label

	watcher *app.FileWatcher
}

// New creates a new main window.
func New(fyneApp fyne.App, state *app.State, p *prefs.Prefs) *MainWindow {
	win := fyneApp.NewWindow(windowTitle)

	mw := &MainWindow{
		Window:  win,
		app:     fyneApp,
		state:   state,
		prefs:   p,
		watcher: app.NewFileWatcher(2 * time.Second),
	}

	mw.setupUI()
	mw.setupMenus()
	mw.setupEventHandlers()

	mw.Resize(fyne.NewSize(
		float32(p.FloatWithFallback(prefs.KeyWindowWidth, 1280)),
		float32(p.FloatWithFallback(prefs.KeyWindowHeight, 720)),
	))
	mw.SetCloseIntercept(mw.onClose)
	mw.watcher.Start()

	return mw
}

// setupUI creates the main UI layout.
func (mw *MainWindow) setupUI() {
	mw.sourcePane = canvas.NewImagePane(mw.state, app.PaneSource, mw.sourceContent)
	mw.targetPane = canvas.NewImagePane(mw.state, app.PaneTarget, mw.targetContent)
	mw.sourcePane.OnError(mw.showError)
	mw.targetPane.OnError(mw.showError)

	mw.statusBar = widget.NewLabel("Load an NG image and an OK image to begin")

	mw.split = container.NewHSplit(
		mw.paneWithTitle(dsimage.RoleSource.String(), mw.sourcePane),
		mw.paneWithTitle(dsimage.RoleTarget.String(), mw.targetPane),
	)
	mw.split.SetOffset(mw.prefs.FloatWithFallback(prefs.KeySplitOffset, 0.5))

	content := container.NewBorder(
		mw.createToolbar(),                // top
		container.NewPadded(mw.statusBar), // bottom
		nil,                               // left
		nil,                               // right
		mw.split,                          // center
	)

	mw.SetContent(content)
}

func (mw *MainWindow) paneWithTitle(title string, pane fyne.CanvasObject) fyne.CanvasObject {
	label := widget.NewLabelWithStyle(title, fyne.TextAlignCenter, fyne.TextStyle{Bold: true})
	return container.NewBorder(label, nil, nil, nil, pane)
}

// createToolbar creates the toolbar with the editing commands.
func (mw *MainWindow) createToolbar() fyne.CanvasObject {
	return widget.NewToolbar(
		widget.NewToolbarAction(theme.FolderOpenIcon(), mw.onLoadSource),
		widget.NewToolbarAction(theme.FileImageIcon(), mw.onLoadTarget),
		widget.NewToolbarSeparator(),
		widget.NewToolbarAction(theme.ContentUndoIcon(), mw.onResetPolygon),
		widget.NewToolbarAction(theme.ContentClearIcon(), mw.onClearRegions),
		widget.NewToolbarSeparator(),
		widget.NewToolbarAction(theme.ViewRefreshIcon(), func() { mw.onRotate(1) }),
		widget.NewToolbarAction(theme.DeleteIcon(), mw.onDeleteRegion),
		widget.NewToolbarSeparator(),
		widget.NewToolbarAction(theme.DocumentSaveIcon(), mw.onSaveResult),
	)
}

// setupMenus creates the application menus.
func (mw *MainWindow) setupMenus() {
	fileMenu := fyne.NewMenu("File",
		fyne.NewMenuItem("Load NG Image...", mw.onLoadSource),
		fyne.NewMenuItem("Load OK Image...", mw.onLoadTarget),
		fyne.NewMenuItemSeparator(),
		fyne.NewMenuItem("Save Result...", mw.onSaveResult),
		fyne.NewMenuItemSeparator(),
		fyne.NewMenuItem("Quit", mw.onClose),
	)

	editMenu := fyne.NewMenu("Edit",
		fyne.NewMenuItem("Close Polygon", mw.onClosePolygon),
		fyne.NewMenuItem("Reset Polygon", mw.onResetPolygon),
		fyne.NewMenuItemSeparator(),
		fyne.NewMenuItem("Rotate Clockwise", func() { mw.onRotate(1) }),
		fyne.NewMenuItem("Rotate Counter-clockwise", func() { mw.onRotate(-1) }),
		fyne.NewMenuItem("Scale Up", func() { mw.onScale(true) }),
		fyne.NewMenuItem("Scale Down", func() { mw.onScale(false) }),
		fyne.NewMenuItem("Delete Region", mw.onDeleteRegion),
		fyne.NewMenuItemSeparator(),
		fyne.NewMenuItem("Clear Regions", mw.onClearRegions),
		fyne.NewMenuItem("Clear All", mw.onClearAll),
	)

	viewMenu := fyne.NewMenu("View",
		fyne.NewMenuItem("Fit NG Image", func() { mw.onFit(app.PaneSource) }),
		fyne.NewMenuItem("Fit OK Image", func() { mw.onFit(app.PaneTarget) }),
	)

	helpMenu := fyne.NewMenu("Help",
		fyne.NewMenuItem("Controls", mw.onControls),
		fyne.NewMenuItem("About", mw.onAbout),
	)

	mw.SetMainMenu(fyne.NewMainMenu(fileMenu, editMenu, viewMenu, helpMenu))
}

// setupEventHandlers registers for document events.
func (mw *MainWindow) setupEventHandlers() {
	mw.watcher.Bind(mw.state)
	mw.watcher.OnChange(mw.onFileChanged)

	mw.state.On(app.EventSourceLoaded, func(data interface{}) {
		mw.sourcePane.Invalidate()
		if layer, ok := data.(*dsimage.Layer); ok {
			mw.updateStatus(fmt.Sprintf("NG image %s (%dx%d)", layer.Name(), layer.Width(), layer.Height()))
		}
	})
	mw.state.On(app.EventTargetLoaded, func(data interface{}) {
		mw.targetPane.Invalidate()
		if layer, ok := data.(*dsimage.Layer); ok {
			mw.SetTitle(windowTitle + " - " + layer.Name())
			mw.updateStatus(fmt.Sprintf("OK image %s (%dx%d)", layer.Name(), layer.Width(), layer.Height()))
		}
	})
	mw.state.On(app.EventPolygonChanged, func(data interface{}) {
		mw.sourcePane.Refresh()
		if pts, ok := data.([]geometry.Point2D); ok && len(pts) > 0 {
			mw.updateStatus(fmt.Sprintf("%d vertices, right click to close", len(pts)))
		}
	})

	regionChanged := func(interface{}) {
		mw.targetPane.Invalidate()
		mw.markModified()
	}
	mw.state.On(app.EventRegionAdded, func(data interface{}) {
		regionChanged(data)
		if r, ok := data.(*region.Region); ok {
			mw.updateStatus(fmt.Sprintf("Placed region %s (%dx%d)", r.ID(), int(r.Size().Width), int(r.Size().Height)))
		}
	})
	mw.state.On(app.EventRegionChanged, func(data interface{}) {
		regionChanged(data)
		if r, ok := data.(*region.Region); ok {
			mw.updateStatus(fmt.Sprintf("Region %s: scale %.2f, rotation %.0f°", r.ID(), r.Scale(), r.Rotation()))
		}
	})
	mw.state.On(app.EventRegionRemoved, regionChanged)
	mw.state.On(app.EventRegionsCleared, regionChanged)
	mw.state.On(app.EventActiveChanged, func(interface{}) {
		mw.targetPane.Refresh()
	})

	mw.state.On(app.EventViewChanged, func(data interface{}) {
		switch data {
		case app.PaneSource:
			mw.sourcePane.Refresh()
		case app.PaneTarget:
			mw.targetPane.Refresh()
		}
	})

	mw.state.On(app.EventExported, func(data interface{}) {
		mw.SetTitle(mw.baseTitle())
	})
}

func (mw *MainWindow) sourceContent() (*image.NRGBA, error) {
	src := mw.state.SourceLayer()
	if src == nil {
		return nil, nil
	}
	return src.Buffer.Image(), nil
}

func (mw *MainWindow) targetContent() (*image.NRGBA, error) {
	out, err := mw.state.Render()
	if errors.Is(err, app.ErrNoTargetLoaded) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return out.Image(), nil
}

// updateStatus updates the status bar text.
func (mw *MainWindow) updateStatus(text string) {
	mw.statusBar.SetText(text)
}

func (mw *MainWindow) showError(err error) {
	log.Printf("Error: %v", err)
	dialog.ShowError(err, mw.Window)
}

func (mw *MainWindow) baseTitle() string {
	target := mw.state.TargetLayer()
	if target == nil {
		return windowTitle
	}
	return windowTitle + " - " + target.Name()
}

func (mw *MainWindow) markModified() {
	if mw.state.Modified() {
		mw.SetTitle(mw.baseTitle() + " *")
	}
}

// dirURI returns a remembered directory as a ListableURI, or nil.
func (mw *MainWindow) dirURI(key string) fyne.ListableURI {
	dir := mw.prefs.Dir(key)
	if dir == "" {
		return nil
	}
	listable, err := storage.ListerForURI(storage.NewFileURI(dir))
	if err != nil {
		return nil
	}
	return listable
}

// Menu action handlers

func (mw *MainWindow) onLoadSource() {
	mw.openImage(prefs.KeySourceDir, mw.state.LoadSourceFile)
}

func (mw *MainWindow) onLoadTarget() {
	if len(mw.state.Regions()) == 0 {
		mw.openImage(prefs.KeyTargetDir, mw.state.LoadTargetFile)
		return
	}
	dialog.ShowConfirm("Load OK Image",
		"Loading a new OK image removes all placed regions. Continue?",
		func(ok bool) {
			if ok {
				mw.openImage(prefs.KeyTargetDir, mw.state.LoadTargetFile)
			}
		}, mw.Window)
}

func (mw *MainWindow) openImage(dirKey string, load func(path string) error) {
	fd := dialog.NewFileOpen(func(reader fyne.URIReadCloser, err error) {
		if err != nil || reader == nil {
			return
		}
		reader.Close()
		path := reader.URI().Path()
		mw.prefs.RememberFile(dirKey, path)
		if err := load(path); err != nil {
			mw.showError(err)
		}
	}, mw.Window)
	fd.SetFilter(storage.NewExtensionFileFilter(codec.SupportedFormats()))
	if loc := mw.dirURI(dirKey); loc != nil {
		fd.SetLocation(loc)
	}
	fd.Show()
}

func (mw *MainWindow) onSaveResult() {
	target := mw.state.TargetLayer()
	if target == nil || len(mw.state.Regions()) == 0 {
		mw.showError(app.ErrEmptyComposite)
		return
	}
	fd := dialog.NewFileSave(func(writer fyne.URIWriteCloser, err error) {
		if err != nil || writer == nil {
			return
		}
		writer.Close()
		path := writer.URI().Path()
		if !codec.IsSupportedFormat(path) || codec.FormatFromPath(path) == codec.FormatGIF {
			path += codec.FormatPNG.Ext()
		}
		mw.prefs.RememberFile(prefs.KeyExportDir, path)
		if err := mw.state.ExportFile(path); err != nil {
			mw.showError(err)
			return
		}
		mw.updateStatus("Saved " + path)
	}, mw.Window)
	fd.SetFileName(resultName(target))
	if loc := mw.dirURI(prefs.KeyExportDir); loc != nil {
		fd.SetLocation(loc)
	}
	fd.Show()
}

// resultName suggests an output name next to the OK image's name.
func resultName(target *dsimage.Layer) string {
	name := "result"
	if target != nil && target.Path != "" {
		base := filepath.Base(target.Path)
		name = base[:len(base)-len(filepath.Ext(base))] + "_synth"
	}
	return name + codec.FormatPNG.Ext()
}

func (mw *MainWindow) onClosePolygon() {
	if _, err := mw.state.FinalizePolygon(); err != nil {
		mw.showError(err)
	}
}

func (mw *MainWindow) onResetPolygon() {
	mw.state.ResetPolygon()
}

func (mw *MainWindow) onClearRegions() {
	mw.state.ClearRegions()
}

func (mw *MainWindow) onClearAll() {
	mw.state.ClearAll()
}

func (mw *MainWindow) onRotate(dir float64) {
	mw.commandErr(mw.state.NudgeRotation(dir * mw.state.Config().RotateStep))
}

func (mw *MainWindow) onScale(up bool) {
	mw.commandErr(mw.state.NudgeScale(up))
}

func (mw *MainWindow) onDeleteRegion() {
	mw.commandErr(mw.state.DeleteActive())
}

// commandErr reports a failed region command. Having nothing selected is
// a status message, not an error dialog.
func (mw *MainWindow) commandErr(err error) {
	switch {
	case err == nil:
	case errors.Is(err, app.ErrNoActiveRegion):
		mw.updateStatus("Select a region on the OK image first")
	default:
		mw.showError(err)
	}
}

func (mw *MainWindow) onFit(p app.Pane) {
	pane := mw.sourcePane
	if p == app.PaneTarget {
		pane = mw.targetPane
	}
	size := pane.Size()
	mw.state.ResizeView(p, float64(size.Width), float64(size.Height))
}

// onFileChanged offers to reload an image that changed on disk. It runs on
// the watcher goroutine.
func (mw *MainWindow) onFileChanged(p app.Pane, path string) {
	load := mw.state.LoadSourceFile
	if p == app.PaneTarget {
		load = mw.state.LoadTargetFile
	}
	dialog.ShowConfirm("Image Changed",
		fmt.Sprintf("%s changed on disk. Reload it?", filepath.Base(path)),
		func(ok bool) {
			if !ok {
				return
			}
			if err := load(path); err != nil {
				mw.showError(err)
			}
		}, mw.Window)
}

func (mw *MainWindow) onControls() {
	dialog.ShowInformation("Controls",
		"NG image:\n"+
			"  left click: add vertex\n"+
			"  right click or Enter: close polygon\n"+
			"  Escape: discard polygon\n\n"+
			"OK image:\n"+
			"  drag: move region\n"+
			"  wheel over region: scale\n"+
			"  R / L: rotate\n"+
			"  Delete: remove region\n\n"+
			"Wheel elsewhere zooms the view.",
		mw.Window)
}

func (mw *MainWindow) onAbout() {
	dialog.ShowInformation("About "+windowTitle,
		fmt.Sprintf("%s\n\n"+
			"Cut defects out of NG images and paste them onto OK images\n"+
			"to synthesize training data.\n\n"+
			"Built: %s\n"+
			"Commit: %s",
			version.String(), version.BuildTime, version.GitCommit),
		mw.Window)
}

// onClose saves the window layout and quits.
func (mw *MainWindow) onClose() {
	mw.watcher.Stop()
	size := mw.Canvas().Size()
	mw.prefs.SetFloat(prefs.KeyWindowWidth, float64(size.Width))
	mw.prefs.SetFloat(prefs.KeyWindowHeight, float64(size.Height))
	mw.prefs.SetFloat(prefs.KeySplitOffset, mw.split.Offset)
	if err := mw.prefs.Save(); err != nil {
		log.Printf("Failed to save preferences: %v", err)
	}
	mw.app.Quit()
}
