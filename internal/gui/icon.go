package gui

import "fyne.io/fyne/v2"

var iconSVG = []byte(`<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 256 256">
<rect width="256" height="256" rx="48" fill="#2b6cb0"/>
<path d="M64 60h88a40 40 0 0 1 40 40v96H104a40 40 0 0 1-40-40z" fill="#fff"/>
<path d="M96 100h64M96 132h64M96 164h40" stroke="#2b6cb0" stroke-width="12" stroke-linecap="round"/>
</svg>`)

// GetAppIcon returns the application icon as a Fyne resource
func GetAppIcon() fyne.Resource {
	return fyne.NewStaticResource("lexilive.svg", iconSVG)
}
