// Package imaging renders the visual summaries of a region from the previews
// the image worker leaves on disk.
//
// The worker writes one preprocessed JPEG per retained scene under
// <filepath>/<sitename>/jpg_files/preprocessed. This package shrinks them
// through a ThumbnailCache and lays them out on a contact sheet: one framed
// thumbnail per scene, the frame colored by the scene's cloud cover and the
// tile labelled with its acquisition date.
//
// # Coordinate System
//
// Pixel coordinates are 0-based with (0,0) at the top-left corner, X increasing
// rightward and Y increasing downward. Tiles are placed row-major.
//
// # Thread Safety
//
// The ThumbnailCache type is safe for concurrent use. ContactSheet does not modify
// the images it reads.
//
// # Error Handling
//
// Functions return errors for invalid layouts and for previews that cannot be
// decoded. A contact sheet with no tiles is an error; callers decide whether a
// region without previews deserves one.
package imaging
