// Command spatialrip converts 3D Blu-ray discs, disc images, and MVC
// containers into MV-HEVC spatial video files.
//
// Usage:
//
//	spatialrip run <source>        convert one disc, image, folder, or file
//	spatialrip batch <folder>      convert every source under a folder
//	spatialrip watch [folder]      convert sources as they appear
//	spatialrip watch --disc        convert each disc inserted in the drive
//	spatialrip stages              list pipeline stages for --start-stage
//	spatialrip deps                check external tools
//	spatialrip history             list recent runs
//	spatialrip clean               remove stale work directories
//	spatialrip logs [-f]           print the tail of the log file
//	spatialrip test-notify         send a test ntfy notification
//	spatialrip config init|validate|show
package main
