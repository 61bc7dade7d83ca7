// Package watch turns filesystem and udev activity into pipeline sources.
//
// FolderWatcher follows a directory tree with fsnotify and hands over each
// new image, transport stream, Matroska file, or disc folder once its size has
// stopped changing for the settle period. DiscWatcher listens on the udev
// netlink socket for media arriving in the configured optical drive. Both
// call their handler synchronously so items are processed one at a time.
package watch
