package handler

import (
	"github.com/tt1125/kacchi-navi/internal/auth"
	"github.com/tt1125/kacchi-navi/internal/chat"
	"github.com/tt1125/kacchi-navi/internal/lecture"
	"github.com/tt1125/kacchi-navi/internal/repository"
	"github.com/tt1125/kacchi-navi/internal/timetable"
	"github.com/tt1125/kacchi-navi/internal/user"
)

// 各サービスがハンドラーの要求するインターフェースを満たすことのコンパイル時チェック。
var (
	_ AuthServiceInterface      = (*auth.Service)(nil)
	_ LectureServiceInterface   = (*lecture.Service)(nil)
	_ ChatServiceInterface      = (*chat.Service)(nil)
	_ TimetableServiceInterface = (*timetable.Service)(nil)
	_ UserServiceInterface      = (*user.Service)(nil)
	_ UserGetOrCreator          = (repository.UserRepository)(nil)
)
