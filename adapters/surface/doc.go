// Package carouselsurface renders a carousel Document to editing-surface
// markup.
//
// The markup carries the ids and classes the export pipeline expects:
// the element-to-download-as-pdf container, add-slide items, one
// carousel-item-<i> per slide with its wrapper, menubars, page base and
// content image, and font-<name> classes backed by --font-<name> custom
// properties. Renderer executes the template through a TemplateExecutor;
// the default executor uses pongo2. Slide text is cleaned with bluemonday
// before it reaches the template.
package carouselsurface
