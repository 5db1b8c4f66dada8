package bot

import "strings"

// User-facing texts. Content is a presentation concern and lives entirely in
// this package; the flow router only names screens and notices.
const (
	textHome = `به موچی سرور خوش آمدید 🍡

یکی از گزینه‌های زیر را انتخاب کنید ⬇`

	textBuy          = "نوع کانفیگ مورد نظر خود را انتخاب کنید 🛒"
	textBuyAlone     = "کانفیگ تک نفره: اپراتور خود را انتخاب کنید 🧜‍♂️"
	textBuyFamily    = "کانفیگ خانوادگی: تعداد نفرات را انتخاب کنید 👫"
	textTest         = "اپراتور خود را انتخاب کنید 🎏"
	textHelp         = "برنامه مناسب دستگاه خود را از لینک‌های زیر دریافت کنید 📋"
	textFunds        = "مبلغ مورد نظر برای افزایش موجودی را انتخاب کنید 💰"
	textTransaction  = "\n\nپس از پرداخت، رسید خود را از طریق دکمه «ارسال رسید» بفرستید 📨"
	textReceiptOK    = "درخواست شما ثبت شد ✅\nپشتیبانی به زودی کانفیگ را برای شما ارسال می‌کند 🏴‍☠"
	textReceiptAsk   = "📸 عکس رسید پرداخت خود را ارسال کنید.\n📨 یا شناسه پرداخت خود را بنویسید.\n\n⬇⬇⬇"
	textRelayFailed  = "❌ ارسال به پشتیبانی ناموفق بود. لطفاً کمی بعد دوباره تلاش کنید."
	textTestUsed     = "❌ شما قبلاً از کانفیگ تستی استفاده کرده‌اید."
	textNoFunds      = "❌ موجودی شما کافی نمیباشد. 🪙"
	textNoTier       = "❌ ابتدا یک کانفیگ را انتخاب کنید. 🛒"
	textPaymentOK    = "پرداخت با موفقیت انجام شد ✅\nپشتیبانی به زودی کانفیگ را برای شما ارسال می‌کند 🏴‍☠"
	textEditSaved    = "✅ اطلاعات کاربر با موفقیت به‌روزرسانی شد."
	textEditBad      = "❌ فرمت اطلاعات نادرست است."
	textBlocked      = "🚫 کاربر با موفقیت مسدود شد."
	textUserMissing  = "❌ کاربر یافت نشد."
	textNotAllowed   = "❌ این بخش برای شما در دسترس نیست."
	textStorageFail  = "❌ خطایی پیش آمد. لطفاً دوباره تلاش کنید."
	textNotAccepted  = "❌ فقط متن یا عکس پذیرفته میشود. 📸"
	textConfigHeader = "🛑 کانفیگ زیر را کپی کنید یا QR کد آن را با برنامه V2ray اسکن کنید"
	textAnswerSent   = "Message sent to the user."
	textAdminPanel   = "💻 پنل مدیریت: یک کاربر را انتخاب کنید"
	textVIP          = "🌟 کانفیگ اختصاصی VIP 🌟"
	textSpecial      = "❤️ کانفیگ اختصاصی شما ❤️"
	textDiscount     = `🎁 با دعوت دوستان خود اعتبار هدیه بگیرید!

هر نفری که با لینک شما ربات را استارت کند، هدیه به موجودی شما اضافه می‌شود.`

	btnBack     = "❌ بازگشت"
	btnBackHome = "بازگشت به خانه 🏡"
)

// smallTalk answers idle chatter the way the shop always has.
func smallTalk(text string) string {
	switch strings.ToLower(strings.TrimSpace(text)) {
	case "hi", "hello", "hey", "salam", "slm", "سلام", "سلم":
		return "سلام ارادت 🫡"
	case "привет", "priviet", "پریویت":
		return "Priviet Azizam 🙃❤️"
	default:
		return "متوجه نشدم! 🤔"
	}
}
